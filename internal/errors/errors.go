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

// Package errors defines sentinel errors for consistent error handling across the application.
// Classified API errors and locally detected failures unwrap to one of these values,
// and the CLI maps them to exit codes for proper scripting support.
package errors

import "errors"

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrAuthentication indicates the reporting API rejected the credentials (HTTP 401/402).
	// Aborts the whole run. Maps to exit code 2.
	ErrAuthentication = errors.New("reporting api authentication failed")

	// ErrRateLimit indicates the per-user or per-project rate limit was exceeded.
	// The current stream is abandoned.
	ErrRateLimit = errors.New("reporting api rate limit exceeded")

	// ErrQuotaExceeded indicates the daily or per-view quota was exhausted.
	// The current stream is abandoned.
	ErrQuotaExceeded = errors.New("reporting api quota exceeded")

	// ErrInvalidArgument indicates the report definition was rejected (HTTP 400).
	ErrInvalidArgument = errors.New("invalid report definition")

	// ErrBackendServer indicates a transient server-side failure (HTTP 500/503).
	// Retried with backoff; surfaces only when retries are exhausted.
	ErrBackendServer = errors.New("reporting api backend error")

	// ErrUnknown indicates an API error outside the known taxonomy.
	ErrUnknown = errors.New("unknown reporting api error")

	// ErrPaginationLoop indicates the API returned the same page token twice in a row.
	ErrPaginationLoop = errors.New("pagination loop detected")

	// ErrUnsupportedField indicates a dimension or metric name whose type cannot be determined.
	// Maps to exit code 4.
	ErrUnsupportedField = errors.New("unsupported field")

	// ErrNetworkFailure indicates a network connection problem.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrConfig indicates invalid or incomplete configuration.
	// Maps to exit code 4.
	ErrConfig = errors.New("invalid configuration")

	// ErrStreamsFailed indicates the run finished but at least one stream was skipped.
	// Maps to exit code 1.
	ErrStreamsFailed = errors.New("one or more streams failed")
)
