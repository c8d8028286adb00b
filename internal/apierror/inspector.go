// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apierror

import (
	"context"
	"errors"
	"net"
	"strings"

	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
)

// Inspector provides methods for analyzing errors returned by the reporting
// API client.
type Inspector interface {
	// KindOf returns the classified kind of err. Network timeouts are
	// reported as BackendServer.
	KindOf(err error) Kind

	// IsTransient returns true if the call should be retried with backoff.
	IsTransient(err error) bool

	// IsTimeout returns true if the error represents a network timeout.
	IsTimeout(err error) bool

	// IsNetworkError returns true if the error represents a connectivity failure.
	IsNetworkError(err error) bool
}

// ErrorInspector implements Inspector by walking the error chain first and
// falling back to message inspection for errors from lower layers.
type ErrorInspector struct{}

// NewInspector creates a new ErrorInspector.
func NewInspector() Inspector {
	return &ErrorInspector{}
}

// KindOf classifies err.
func (i *ErrorInspector) KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	for _, k := range []Kind{Authentication, RateLimit, QuotaExceeded, InvalidArgument, BackendServer, PaginationLoop, UnsupportedField} {
		if errors.Is(err, k.Sentinel()) {
			return k
		}
	}

	if i.IsTimeout(err) {
		return BackendServer
	}
	return Unknown
}

// IsTransient reports whether err is a timeout or a backend server error.
func (i *ErrorInspector) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return !IsFatal(i.KindOf(err))
}

// IsTimeout checks if the error is a network timeout. Message text is
// consulted only for errors wrapping ErrNetworkFailure.
func (i *ErrorInspector) IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	// A cancelled run is not a timeout worth retrying.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if !errors.Is(err, relaierrors.ErrNetworkFailure) {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "timed out")
}

// IsNetworkError checks if the error is a network connectivity error.
func (i *ErrorInspector) IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, relaierrors.ErrNetworkFailure) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "tls handshake") ||
		strings.Contains(errStr, "network is unreachable")
}
