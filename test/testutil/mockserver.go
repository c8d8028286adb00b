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

// Package testutil provides common test helpers for analytics-relay
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirseerhq/analytics-relay/internal/analytics"
)

// Paths served by ReportingServer.
const (
	BatchGetPath = "/v4/reports:batchGet"
	ColumnsPath  = "/metadata/ga/columns"
)

// Response is one scripted batchGet reply.
type Response struct {
	Status int
	Body   any
	// Delay is slept before replying, to provoke client timeouts.
	Delay time.Duration
}

// RecordedRequest is a batchGet call as the server saw it.
type RecordedRequest struct {
	Body          analytics.BatchGetRequest
	QuotaUser     string
	Authorization string
	UserAgent     string
}

// ReportingServer mimics the reporting and metadata endpoints. BatchGet
// calls consume the script in order; once it is exhausted every call gets
// an empty final page.
type ReportingServer struct {
	*httptest.Server

	mu       sync.Mutex
	script   []Response
	columns  *analytics.ColumnsResponse
	requests []RecordedRequest
}

// NewReportingServer starts a server that is closed when the test ends.
func NewReportingServer(t *testing.T) *ReportingServer {
	t.Helper()
	s := &ReportingServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+BatchGetPath, s.handleBatchGet)
	mux.HandleFunc("GET "+ColumnsPath, s.handleColumns)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Endpoint returns the batchGet URL.
func (s *ReportingServer) Endpoint() string {
	return s.URL + BatchGetPath
}

// MetadataEndpoint returns the columns URL.
func (s *ReportingServer) MetadataEndpoint() string {
	return s.URL + ColumnsPath
}

// Page appends a successful reply.
func (s *ReportingServer) Page(resp *analytics.BatchGetResponse) *ReportingServer {
	return s.Respond(Response{Status: http.StatusOK, Body: resp})
}

// Error appends a Google API error reply.
func (s *ReportingServer) Error(status int, reason, message string) *ReportingServer {
	return s.Respond(Response{Status: status, Body: ErrorBody(status, reason, message)})
}

// Respond appends an arbitrary reply.
func (s *ReportingServer) Respond(r Response) *ReportingServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, r)
	return s
}

// SetColumns sets the metadata endpoint reply.
func (s *ReportingServer) SetColumns(resp *analytics.ColumnsResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = resp
}

// Requests returns the batchGet calls received so far.
func (s *ReportingServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

func (s *ReportingServer) handleBatchGet(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rec := RecordedRequest{
		QuotaUser:     r.URL.Query().Get("quotaUser"),
		Authorization: r.Header.Get("Authorization"),
		UserAgent:     r.Header.Get("User-Agent"),
	}
	_ = json.Unmarshal(body, &rec.Body)

	s.mu.Lock()
	call := len(s.requests)
	s.requests = append(s.requests, rec)
	reply := Response{Status: http.StatusOK, Body: &analytics.BatchGetResponse{Reports: []analytics.Report{{}}}}
	if call < len(s.script) {
		reply = s.script[call]
	}
	s.mu.Unlock()

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}
	writeJSON(w, reply.Status, reply.Body)
}

func (s *ReportingServer) handleColumns(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	columns := s.columns
	s.mu.Unlock()
	if columns == nil {
		columns = &analytics.ColumnsResponse{}
	}
	writeJSON(w, http.StatusOK, columns)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ErrorBody builds the JSON error envelope of Google APIs.
func ErrorBody(status int, reason, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
			"errors": []map[string]any{{
				"reason":  reason,
				"domain":  "global",
				"message": message,
			}},
		},
	}
}

// DailyHeader is the column header of a ga:date / ga:sessions report.
var DailyHeader = analytics.ColumnHeader{
	Dimensions: []string{"ga:date"},
	MetricHeader: analytics.MetricHeader{
		MetricHeaderEntries: []analytics.MetricHeaderEntry{{Name: "ga:sessions", Type: "INTEGER"}},
	},
}

// DailyPage builds a DailyHeader page with one row per date, each with
// sessions equal to its position plus one.
func DailyPage(nextPageToken string, dates ...string) *analytics.BatchGetResponse {
	rows := make([]analytics.ReportRow, 0, len(dates))
	for i, d := range dates {
		rows = append(rows, analytics.ReportRow{
			Dimensions: []string{d},
			Metrics:    []analytics.DateRangeValues{{Values: []string{strconv.Itoa(i + 1)}}},
		})
	}
	return analytics.NewPage(DailyHeader, rows, nextPageToken)
}

// SampleColumns is a metadata reply covering the fields DailyHeader uses.
func SampleColumns() *analytics.ColumnsResponse {
	return &analytics.ColumnsResponse{
		Kind: "analytics#columns",
		Items: []analytics.Column{
			{ID: "ga:date", Attributes: analytics.ColumnAttributes{Type: "DIMENSION", DataType: "STRING", Status: "PUBLIC"}},
			{ID: "ga:country", Attributes: analytics.ColumnAttributes{Type: "DIMENSION", DataType: "STRING", Status: "PUBLIC"}},
			{ID: "ga:sessions", Attributes: analytics.ColumnAttributes{Type: "METRIC", DataType: "INTEGER", Status: "PUBLIC"}},
			{ID: "ga:bounceRate", Attributes: analytics.ColumnAttributes{Type: "METRIC", DataType: "PERCENT", Status: "PUBLIC"}},
		},
	}
}
