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
	"testing"

	"github.com/sirseerhq/analytics-relay/internal/report"
)

func TestNewReportRequest(t *testing.T) {
	pageSize := 500
	def := report.Build(report.Spec{
		Name:          "by_country",
		Dimensions:    []string{"ga_country"},
		Metrics:       []string{"ga:sessions"},
		Segments:      []string{"gaid::-1"},
		SamplingLevel: "LARGE",
		PageSize:      &pageSize,
	})

	rr := NewReportRequest("42", def, DateRange{StartDate: "2024-01-01", EndDate: "2024-01-02"}, pageSize, "500")
	data, err := json.Marshal(rr)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got["viewId"] != "42" {
		t.Errorf("viewId = %v", got["viewId"])
	}
	if got["pageToken"] != "500" {
		t.Errorf("pageToken = %v", got["pageToken"])
	}
	if got["samplingLevel"] != "LARGE" {
		t.Errorf("samplingLevel = %v", got["samplingLevel"])
	}
	dims := got["dimensions"].([]any)
	if dims[0].(map[string]any)["name"] != "ga:country" {
		t.Errorf("dimension = %v, want ga:country", dims[0])
	}
	if _, ok := got["dimensionFilterClauses"]; ok {
		t.Error("absent filters must be omitted")
	}
	ranges := got["dateRanges"].([]any)
	if len(ranges) != 1 || ranges[0].(map[string]any)["endDate"] != "2024-01-02" {
		t.Errorf("dateRanges = %v", ranges)
	}
}

func TestBatchGetResponse_NextPageToken(t *testing.T) {
	var nilResp *BatchGetResponse
	if nilResp.NextPageToken() != "" {
		t.Error("nil response must have no token")
	}
	if (&BatchGetResponse{}).NextPageToken() != "" {
		t.Error("response without reports must have no token")
	}
	if got := NewPage(ColumnHeader{}, nil, "abc").NextPageToken(); got != "abc" {
		t.Errorf("NextPageToken() = %q, want abc", got)
	}
}

func TestMockClient(t *testing.T) {
	boom := errors.New("boom")
	first := NewPage(ColumnHeader{}, nil, "1")
	second := NewPage(ColumnHeader{}, nil, "")
	mock := NewMockClient(WithPages(first, second), WithCallError(1, boom))
	ctx := context.Background()

	resp, err := mock.BatchGet(ctx, &BatchGetRequest{}, "q")
	if err != nil || resp != first {
		t.Fatalf("call 0 = %v, %v", resp, err)
	}
	if _, err := mock.BatchGet(ctx, &BatchGetRequest{}, "q"); !errors.Is(err, boom) {
		t.Fatalf("call 1 error = %v, want boom", err)
	}
	resp, err = mock.BatchGet(ctx, &BatchGetRequest{}, "q")
	if err != nil || resp != second {
		t.Fatalf("call 2 = %v, %v", resp, err)
	}
	resp, err = mock.BatchGet(ctx, &BatchGetRequest{}, "q")
	if err != nil || resp.NextPageToken() != "" {
		t.Fatalf("call past the script = %v, %v", resp, err)
	}
	if mock.CallCount() != 4 || mock.QuotaUsers[3] != "q" {
		t.Errorf("recorded %d calls, quota users %v", mock.CallCount(), mock.QuotaUsers)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := mock.BatchGet(cancelled, &BatchGetRequest{}, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled call error = %v", err)
	}
}
