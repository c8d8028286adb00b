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
	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
)

// Kind is the classified category of a failure.
type Kind int

const (
	Unknown Kind = iota
	RateLimit
	QuotaExceeded
	InvalidArgument
	Authentication
	BackendServer
	// PaginationLoop and UnsupportedField are detected locally, never
	// returned by the API.
	PaginationLoop
	UnsupportedField
)

var kindNames = map[Kind]string{
	Unknown:          "unknown",
	RateLimit:        "rate_limit",
	QuotaExceeded:    "quota_exceeded",
	InvalidArgument:  "invalid_argument",
	Authentication:   "authentication",
	BackendServer:    "backend_server",
	PaginationLoop:   "pagination_loop",
	UnsupportedField: "unsupported_field",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Scope says how far a failure of this kind propagates.
type Scope int

const (
	// ScopeStream abandons the current stream; the run continues.
	ScopeStream Scope = iota
	// ScopeRun stops the whole run.
	ScopeRun
)

// Scope returns the propagation scope of the kind.
func (k Kind) Scope() Scope {
	switch k {
	case Authentication, UnsupportedField:
		return ScopeRun
	default:
		return ScopeStream
	}
}

// Retryable reports whether the run may keep going after an error of this
// kind. It does not mean the retry loop repeats the call; see IsFatal.
func (k Kind) Retryable() bool {
	switch k {
	case RateLimit, QuotaExceeded, BackendServer:
		return true
	default:
		return false
	}
}

// Sentinel returns the errors package value a classified error unwraps to.
func (k Kind) Sentinel() error {
	switch k {
	case RateLimit:
		return relaierrors.ErrRateLimit
	case QuotaExceeded:
		return relaierrors.ErrQuotaExceeded
	case InvalidArgument:
		return relaierrors.ErrInvalidArgument
	case Authentication:
		return relaierrors.ErrAuthentication
	case BackendServer:
		return relaierrors.ErrBackendServer
	case PaginationLoop:
		return relaierrors.ErrPaginationLoop
	case UnsupportedField:
		return relaierrors.ErrUnsupportedField
	default:
		return relaierrors.ErrUnknown
	}
}

// Reason codes returned in the API error body.
const (
	ReasonUserRateLimitExceeded = "userRateLimitExceeded"
	ReasonRateLimitExceeded     = "rateLimitExceeded"
	ReasonQuotaExceeded         = "quotaExceeded"
)

// Classify maps an HTTP status and API reason code to a Kind. Reason codes
// are checked first because rate and quota errors arrive as 403 or 429.
func Classify(status int, reason string) Kind {
	switch reason {
	case ReasonUserRateLimitExceeded, ReasonRateLimitExceeded:
		return RateLimit
	case ReasonQuotaExceeded:
		return QuotaExceeded
	}

	switch status {
	case 400:
		return InvalidArgument
	case 401, 402:
		return Authentication
	case 500, 503:
		return BackendServer
	default:
		return Unknown
	}
}

// IsFatal reports whether the retry loop must give up immediately on an
// error of this kind. Only backend server errors are retried; rate limit and
// quota errors are not retried either, they abandon the stream.
func IsFatal(k Kind) bool {
	return k != BackendServer
}
