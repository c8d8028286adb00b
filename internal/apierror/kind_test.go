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
	"errors"
	"fmt"
	"testing"

	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		reason    string
		want      Kind
		wantFatal bool
		wantScope Scope
	}{
		{"user rate limit", 403, "userRateLimitExceeded", RateLimit, true, ScopeStream},
		{"project rate limit", 429, "rateLimitExceeded", RateLimit, true, ScopeStream},
		{"quota exceeded", 429, "quotaExceeded", QuotaExceeded, true, ScopeStream},
		{"reason wins over 500", 500, "quotaExceeded", QuotaExceeded, true, ScopeStream},
		{"invalid argument", 400, "badRequest", InvalidArgument, true, ScopeStream},
		{"unauthorized", 401, "", Authentication, true, ScopeRun},
		{"payment required", 402, "", Authentication, true, ScopeRun},
		{"internal error", 500, "internalError", BackendServer, false, ScopeStream},
		{"service unavailable", 503, "backendError", BackendServer, false, ScopeStream},
		{"forbidden without reason", 403, "insufficientPermissions", Unknown, true, ScopeStream},
		{"bad gateway", 502, "", Unknown, true, ScopeStream},
		{"not found", 404, "", Unknown, true, ScopeStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, tt.reason)
			if got != tt.want {
				t.Errorf("Classify(%d, %q) = %s, want %s", tt.status, tt.reason, got, tt.want)
			}
			if IsFatal(got) != tt.wantFatal {
				t.Errorf("IsFatal(%s) = %v, want %v", got, IsFatal(got), tt.wantFatal)
			}
			if got.Scope() != tt.wantScope {
				t.Errorf("%s.Scope() = %v, want %v", got, got.Scope(), tt.wantScope)
			}
		})
	}
}

func TestLocalKinds(t *testing.T) {
	if !IsFatal(PaginationLoop) || PaginationLoop.Scope() != ScopeStream {
		t.Error("pagination loop must be fatal and stream scoped")
	}
	if !IsFatal(UnsupportedField) || UnsupportedField.Scope() != ScopeRun {
		t.Error("unsupported field must be fatal and run scoped")
	}
}

func TestKind_Retryable(t *testing.T) {
	retryable := []Kind{RateLimit, QuotaExceeded, BackendServer}
	for _, k := range retryable {
		if !k.Retryable() {
			t.Errorf("%s.Retryable() = false, want true", k)
		}
	}
	for _, k := range []Kind{Unknown, InvalidArgument, Authentication, PaginationLoop, UnsupportedField} {
		if k.Retryable() {
			t.Errorf("%s.Retryable() = true, want false", k)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	tests := []struct {
		status   int
		reason   string
		sentinel error
	}{
		{401, "", relaierrors.ErrAuthentication},
		{403, "userRateLimitExceeded", relaierrors.ErrRateLimit},
		{403, "quotaExceeded", relaierrors.ErrQuotaExceeded},
		{400, "", relaierrors.ErrInvalidArgument},
		{503, "", relaierrors.ErrBackendServer},
		{418, "", relaierrors.ErrUnknown},
	}

	for _, tt := range tests {
		err := fmt.Errorf("stream sessions: %w", New(tt.status, tt.reason, "boom"))
		if !errors.Is(err, tt.sentinel) {
			t.Errorf("New(%d, %q) does not unwrap to %v", tt.status, tt.reason, tt.sentinel)
		}
	}
}

func TestError_Message(t *testing.T) {
	err := New(403, "quotaExceeded", "Quota Error: profileId ga:1 has exceeded the daily request limit.")
	want := "quota_exceeded (status 403, reason quotaExceeded): Quota Error: profileId ga:1 has exceeded the daily request limit."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestFromResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   Kind
		wantReason string
		wantMsg    string
	}{
		{
			name:   "rate limit body",
			status: 403,
			body: `{"error":{"code":403,"message":"User Rate Limit Exceeded","status":"PERMISSION_DENIED",
				"errors":[{"reason":"userRateLimitExceeded","domain":"usageLimits","message":"User Rate Limit Exceeded"}]}}`,
			wantKind:   RateLimit,
			wantReason: "userRateLimitExceeded",
			wantMsg:    "User Rate Limit Exceeded",
		},
		{
			name:     "invalid argument without errors list",
			status:   400,
			body:     `{"error":{"code":400,"message":"Unknown dimension(s): ga:nope","status":"INVALID_ARGUMENT"}}`,
			wantKind: InvalidArgument,
			wantMsg:  "Unknown dimension(s): ga:nope",
		},
		{
			name:     "plain text body",
			status:   503,
			body:     "Service Unavailable\n",
			wantKind: BackendServer,
			wantMsg:  "Service Unavailable",
		},
		{
			name:     "empty json object",
			status:   401,
			body:     `{}`,
			wantKind: Authentication,
			wantMsg:  "{}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromResponse(tt.status, []byte(tt.body))
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
			if got.Status != tt.status {
				t.Errorf("Status = %d, want %d", got.Status, tt.status)
			}
		})
	}
}
