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

package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirseerhq/analytics-relay/internal/apierror"
	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
	"github.com/sirseerhq/analytics-relay/internal/report"
	"github.com/sirseerhq/analytics-relay/pkg/version"
)

func testConfig(url string) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.Endpoint = url + "/v4/reports:batchGet"
	cfg.MetadataEndpoint = url + "/columns"
	cfg.RequestsPerSecond = 0
	cfg.Timeout = 5 * time.Second
	return cfg
}

func sampleRequest() *BatchGetRequest {
	def := report.Build(report.Spec{
		Name:       "sessions",
		Dimensions: []string{"ga:date"},
		Metrics:    []string{"ga:sessions"},
	})
	rr := NewReportRequest("123", def, DateRange{StartDate: "2024-01-01", EndDate: "2024-01-31"}, 1000, "")
	return &BatchGetRequest{ReportRequests: []ReportRequest{rr}}
}

func TestHTTPClient_BatchGet(t *testing.T) {
	var (
		gotAuth, gotUA, gotQuota, gotMethod string
		gotBody                             map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotQuota = r.URL.Query().Get("quotaUser")
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"reports": [{
				"columnHeader": {
					"dimensions": ["ga:date"],
					"metricHeader": {"metricHeaderEntries": [{"name": "ga:sessions", "type": "INTEGER"}]}
				},
				"data": {"rows": [{"dimensions": ["20240101"], "metrics": [{"values": ["42"]}]}], "rowCount": 1},
				"nextPageToken": "1000"
			}]
		}`)
	}))
	defer server.Close()

	client := NewHTTPClient("secret-token", testConfig(server.URL))
	resp, err := client.BatchGet(context.Background(), sampleRequest(), "user-7")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, version.UserAgent(), gotUA)
	assert.Equal(t, "user-7", gotQuota)

	requests, ok := gotBody["reportRequests"].([]any)
	require.True(t, ok, "body must carry reportRequests")
	require.Len(t, requests, 1)
	first := requests[0].(map[string]any)
	assert.Equal(t, "123", first["viewId"])
	assert.EqualValues(t, 1000, first["pageSize"])
	assert.NotContains(t, first, "pageToken")

	require.Len(t, resp.Reports, 1)
	assert.Equal(t, "1000", resp.NextPageToken())
	assert.Equal(t, []string{"ga:date"}, resp.Reports[0].ColumnHeader.Dimensions)
	assert.Equal(t, "42", resp.Reports[0].Data.Rows[0].Metrics[0].Values[0])
}

func TestHTTPClient_NoQuotaUser(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"reports":[{}]}`)
	}))
	defer server.Close()

	client := NewHTTPClient("t", testConfig(server.URL))
	_, err := client.BatchGet(context.Background(), sampleRequest(), "")
	require.NoError(t, err)
	assert.Empty(t, rawQuery)
}

func TestHTTPClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind apierror.Kind
		sentinel error
	}{
		{
			name:     "unauthorized",
			status:   401,
			body:     `{"error":{"code":401,"message":"Request had invalid authentication credentials."}}`,
			wantKind: apierror.Authentication,
			sentinel: relaierrors.ErrAuthentication,
		},
		{
			name:     "user rate limit",
			status:   403,
			body:     `{"error":{"code":403,"message":"slow down","errors":[{"reason":"userRateLimitExceeded"}]}}`,
			wantKind: apierror.RateLimit,
			sentinel: relaierrors.ErrRateLimit,
		},
		{
			name:     "quota",
			status:   429,
			body:     `{"error":{"code":429,"message":"quota","errors":[{"reason":"quotaExceeded"}]}}`,
			wantKind: apierror.QuotaExceeded,
			sentinel: relaierrors.ErrQuotaExceeded,
		},
		{
			name:     "bad request",
			status:   400,
			body:     `{"error":{"code":400,"message":"Unknown dimension(s): ga:bogus"}}`,
			wantKind: apierror.InvalidArgument,
			sentinel: relaierrors.ErrInvalidArgument,
		},
		{
			name:     "backend",
			status:   503,
			body:     `service unavailable`,
			wantKind: apierror.BackendServer,
			sentinel: relaierrors.ErrBackendServer,
		},
		{
			name:     "not found",
			status:   404,
			body:     `{"error":{"code":404,"message":"nope"}}`,
			wantKind: apierror.Unknown,
			sentinel: relaierrors.ErrUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewHTTPClient("t", testConfig(server.URL))
			_, err := client.BatchGet(context.Background(), sampleRequest(), "")
			require.Error(t, err)

			var apiErr *apierror.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestHTTPClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	client := NewHTTPClient("t", cfg)

	_, err := client.BatchGet(context.Background(), sampleRequest(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, relaierrors.ErrNetworkFailure)

	inspector := apierror.NewInspector()
	assert.True(t, inspector.IsTimeout(err))
	assert.True(t, inspector.IsTransient(err), "timeouts are retried like backend errors")
	assert.Equal(t, apierror.BackendServer, inspector.KindOf(err))
}

func TestHTTPClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewHTTPClient("t", testConfig(server.URL))
	_, err := client.BatchGet(ctx, sampleRequest(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, apierror.NewInspector().IsTransient(err))
}

func TestHTTPClient_Columns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/columns") {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = io.WriteString(w, `{
			"kind": "analytics#columns",
			"totalResults": 3,
			"items": [
				{"id": "ga:country", "kind": "analytics#column", "attributes": {"type": "DIMENSION", "dataType": "STRING", "status": "PUBLIC"}},
				{"id": "ga:sessions", "kind": "analytics#column", "attributes": {"type": "METRIC", "dataType": "INTEGER", "status": "PUBLIC"}},
				{"id": "ga:bounceRate", "kind": "analytics#column", "attributes": {"type": "METRIC", "dataType": "PERCENT", "status": "PUBLIC"}}
			]
		}`)
	}))
	defer server.Close()

	client := NewHTTPClient("t", testConfig(server.URL))
	resp, err := client.Columns(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)

	catalog := resp.Catalog()
	assert.Equal(t, 3, catalog.Len())
	assert.Equal(t, "STRING", catalog.Dimensions["ga:country"])
	assert.Equal(t, "INTEGER", catalog.Metrics["ga:sessions"])
	assert.Equal(t, "PERCENT", catalog.Metrics["ga:bounceRate"])
}

func TestLimitedReader(t *testing.T) {
	lr := &limitedReader{
		ReadCloser: io.NopCloser(strings.NewReader(strings.Repeat("x", 100))),
		limit:      10,
	}
	data, err := io.ReadAll(lr)
	require.Error(t, err)
	assert.Len(t, data, 10)
	assert.Contains(t, err.Error(), "exceeded limit")
}
