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

package testutil

import (
	"context"
	"net/http"
	"testing"

	"github.com/sirseerhq/analytics-relay/internal/analytics"
)

func TestReportingServer_Script(t *testing.T) {
	server := NewReportingServer(t)
	server.Page(DailyPage("1", "20240101", "20240102")).Error(http.StatusServiceUnavailable, "backendError", "try later")

	client := analytics.NewHTTPClient("token", analytics.ClientConfig{Endpoint: server.Endpoint()})
	req := &analytics.BatchGetRequest{ReportRequests: []analytics.ReportRequest{{ViewID: "42"}}}

	resp, err := client.BatchGet(context.Background(), req, "qu")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if got := len(resp.Reports[0].Data.Rows); got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
	if resp.NextPageToken() != "1" {
		t.Errorf("NextPageToken = %q, want 1", resp.NextPageToken())
	}

	if _, err := client.BatchGet(context.Background(), req, ""); err == nil {
		t.Fatal("second call should fail")
	}

	resp, err = client.BatchGet(context.Background(), req, "")
	if err != nil {
		t.Fatalf("third call: %v", err)
	}
	if resp.NextPageToken() != "" {
		t.Error("exhausted script should reply with a final page")
	}

	requests := server.Requests()
	if len(requests) != 3 {
		t.Fatalf("recorded %d requests, want 3", len(requests))
	}
	if requests[0].QuotaUser != "qu" || requests[0].Authorization != "Bearer token" {
		t.Errorf("first request = %+v", requests[0])
	}
	if requests[0].Body.ReportRequests[0].ViewID != "42" {
		t.Errorf("body not recorded: %+v", requests[0].Body)
	}
}

func TestReportingServer_Columns(t *testing.T) {
	server := NewReportingServer(t)
	server.SetColumns(SampleColumns())

	client := analytics.NewHTTPClient("token", analytics.ClientConfig{MetadataEndpoint: server.MetadataEndpoint()})
	resp, err := client.Columns(context.Background())
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if got := resp.Catalog().Len(); got != 4 {
		t.Errorf("catalog size = %d, want 4", got)
	}
}
