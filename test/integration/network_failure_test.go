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

package integration

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sirseerhq/analytics-relay/internal/analytics"
	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
	"github.com/sirseerhq/analytics-relay/internal/metadata"
	"github.com/sirseerhq/analytics-relay/internal/report"
	"github.com/sirseerhq/analytics-relay/internal/state"
	"github.com/sirseerhq/analytics-relay/test/testutil"
)

var countryReport = report.Spec{
	Name:       "sessions_by_country",
	Dimensions: []string{"ga:country"},
	Metrics:    []string{"ga:sessions"},
}

var runDay = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func countryPage(countries ...string) *analytics.BatchGetResponse {
	header := analytics.ColumnHeader{
		Dimensions:   []string{"ga:country"},
		MetricHeader: testutil.DailyHeader.MetricHeader,
	}
	rows := make([]analytics.ReportRow, 0, len(countries))
	for _, c := range countries {
		rows = append(rows, analytics.ReportRow{
			Dimensions: []string{c},
			Metrics:    []analytics.DateRangeValues{{Values: []string{"10"}}},
		})
	}
	return analytics.NewPage(header, rows, "")
}

func TestNetworkFailure_TransientErrorsAreRetried(t *testing.T) {
	server := testutil.NewReportingServer(t)
	server.SetColumns(testutil.SampleColumns())
	server.Error(http.StatusServiceUnavailable, "backendError", "unavailable").
		Error(http.StatusInternalServerError, "internalError", "oops").
		Page(testutil.DailyPage("", "20240101"))

	run := runOnce(t, newClient(server, 5*time.Second), t.TempDir(), runDay, dailyReport)
	if run.err != nil || run.result.Err() != nil {
		t.Fatalf("Sync: %v / %v", run.err, run.result.Err())
	}
	if got := len(server.Requests()); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
	if run.result.Records != 1 {
		t.Errorf("records = %d, want 1", run.result.Records)
	}
}

func TestNetworkFailure_TimeoutIsRetried(t *testing.T) {
	server := testutil.NewReportingServer(t)
	server.SetColumns(testutil.SampleColumns())
	server.Respond(testutil.Response{Status: http.StatusOK, Delay: 2 * time.Second}).
		Page(testutil.DailyPage("", "20240101"))

	run := runOnce(t, newClient(server, 200*time.Millisecond), t.TempDir(), runDay, dailyReport)
	if run.err != nil || run.result.Err() != nil {
		t.Fatalf("Sync: %v / %v", run.err, run.result.Err())
	}
	if got := len(server.Requests()); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestNetworkFailure_ExhaustedRetriesSkipStream(t *testing.T) {
	server := testutil.NewReportingServer(t)
	server.SetColumns(testutil.SampleColumns())
	for i := 0; i < 3; i++ {
		server.Error(http.StatusServiceUnavailable, "backendError", "unavailable")
	}
	server.Page(countryPage("France", "Peru"))

	stateDir := t.TempDir()
	run := runOnce(t, newClient(server, 5*time.Second), stateDir, runDay, dailyReport, countryReport)
	if run.err != nil {
		t.Fatalf("Sync aborted: %v", run.err)
	}
	if run.result.Failed != 1 {
		t.Fatalf("failed streams = %d, want 1", run.result.Failed)
	}
	if !errors.Is(run.result.Err(), relaierrors.ErrBackendServer) {
		t.Errorf("run error %v should wrap ErrBackendServer", run.result.Err())
	}
	if run.result.Streams[1].Status != metadata.StatusSucceeded {
		t.Errorf("second stream = %+v", run.result.Streams[1])
	}

	st, err := state.NewViewFileStore(stateDir, "188392047").Get(t.Context(), dailyReport.Name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st != nil {
		t.Errorf("failed stream wrote a bookmark: %+v", st)
	}
}

func TestNetworkFailure_QuotaSkipsWithoutRetry(t *testing.T) {
	server := testutil.NewReportingServer(t)
	server.SetColumns(testutil.SampleColumns())
	server.Error(http.StatusTooManyRequests, "quotaExceeded", "daily quota")

	run := runOnce(t, newClient(server, 5*time.Second), t.TempDir(), runDay, dailyReport, countryReport)
	if run.err != nil {
		t.Fatalf("Sync aborted: %v", run.err)
	}
	if got := len(server.Requests()); got != 2 {
		t.Errorf("requests = %d, want one per stream", got)
	}
	if run.result.Streams[0].ErrorKind != "quota_exceeded" {
		t.Errorf("error kind = %q", run.result.Streams[0].ErrorKind)
	}
}

func TestNetworkFailure_AuthenticationAbortsRun(t *testing.T) {
	server := testutil.NewReportingServer(t)
	server.SetColumns(testutil.SampleColumns())
	server.Error(http.StatusUnauthorized, "authError", "invalid credentials")

	run := runOnce(t, newClient(server, 5*time.Second), t.TempDir(), runDay, dailyReport, countryReport)
	if !errors.Is(run.err, relaierrors.ErrAuthentication) {
		t.Fatalf("Sync error = %v, want ErrAuthentication", run.err)
	}
	if got := len(server.Requests()); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestNetworkFailure_PaginationLoop(t *testing.T) {
	server := testutil.NewReportingServer(t)
	server.SetColumns(testutil.SampleColumns())
	server.Page(testutil.DailyPage("same", "20240101", "20240102")).
		Page(testutil.DailyPage("same", "20240103", "20240104"))

	run := runOnce(t, newClient(server, 5*time.Second), t.TempDir(), runDay, dailyReport)
	if run.err != nil {
		t.Fatalf("Sync aborted: %v", run.err)
	}
	if !errors.Is(run.result.Err(), relaierrors.ErrPaginationLoop) {
		t.Errorf("run error = %v, want ErrPaginationLoop", run.result.Err())
	}
	if got := len(server.Requests()); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}
