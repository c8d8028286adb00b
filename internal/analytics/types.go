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
	"github.com/sirseerhq/analytics-relay/internal/fieldtype"
	"github.com/sirseerhq/analytics-relay/internal/report"
)

// DateRange is an inclusive [StartDate, EndDate] range in YYYY-MM-DD form.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// ReportRequest is one entry of a batchGet request body. Everything except
// DateRanges and PageToken stays fixed for the lifetime of a stream.
type ReportRequest struct {
	ViewID                 string                         `json:"viewId"`
	DateRanges             []DateRange                    `json:"dateRanges"`
	PageSize               int                            `json:"pageSize,omitempty"`
	PageToken              string                         `json:"pageToken,omitempty"`
	Dimensions             []report.Dimension             `json:"dimensions"`
	Metrics                []report.Metric                `json:"metrics"`
	DimensionFilterClauses []report.DimensionFilterClause `json:"dimensionFilterClauses,omitempty"`
	MetricFilterClauses    []report.MetricFilterClause    `json:"metricFilterClauses,omitempty"`
	OrderBys               []report.OrderBy               `json:"orderBys,omitempty"`
	Segments               []report.Segment               `json:"segments,omitempty"`
	SamplingLevel          string                         `json:"samplingLevel,omitempty"`
}

// NewReportRequest combines a stream's report definition with the per-call
// date range and page token.
func NewReportRequest(viewID string, def report.Definition, dates DateRange, pageSize int, pageToken string) ReportRequest {
	return ReportRequest{
		ViewID:                 viewID,
		DateRanges:             []DateRange{dates},
		PageSize:               pageSize,
		PageToken:              pageToken,
		Dimensions:             def.Dimensions,
		Metrics:                def.Metrics,
		DimensionFilterClauses: def.DimensionFilterClauses,
		MetricFilterClauses:    def.MetricFilterClauses,
		OrderBys:               def.OrderBys,
		Segments:               def.Segments,
		SamplingLevel:          def.SamplingLevel,
	}
}

// BatchGetRequest is the body of a reports:batchGet call.
type BatchGetRequest struct {
	ReportRequests []ReportRequest `json:"reportRequests"`
}

// BatchGetResponse is the body of a successful reports:batchGet call.
type BatchGetResponse struct {
	Reports   []Report `json:"reports"`
	QueryCost int      `json:"queryCost,omitempty"`
}

// NextPageToken returns the page token of the first report, or "" when the
// response has no further pages.
func (r *BatchGetResponse) NextPageToken() string {
	if r == nil || len(r.Reports) == 0 {
		return ""
	}
	return r.Reports[0].NextPageToken
}

// Report is the result of one report request.
type Report struct {
	ColumnHeader  ColumnHeader `json:"columnHeader"`
	Data          ReportData   `json:"data"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
}

// ColumnHeader names the dimension and metric columns of every row.
type ColumnHeader struct {
	Dimensions   []string     `json:"dimensions"`
	MetricHeader MetricHeader `json:"metricHeader"`
}

// MetricHeader lists the metric columns.
type MetricHeader struct {
	MetricHeaderEntries []MetricHeaderEntry `json:"metricHeaderEntries"`
}

// MetricHeaderEntry names one metric column and its API type.
type MetricHeaderEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ReportData holds the rows of a report page.
type ReportData struct {
	Rows         []ReportRow `json:"rows"`
	RowCount     int         `json:"rowCount,omitempty"`
	IsDataGolden bool        `json:"isDataGolden,omitempty"`

	SamplesReadCounts  []string `json:"samplesReadCounts,omitempty"`
	SamplingSpaceSizes []string `json:"samplingSpaceSizes,omitempty"`
}

// ReportRow carries positional dimension values and one metric value set
// per requested date range.
type ReportRow struct {
	Dimensions []string          `json:"dimensions"`
	Metrics    []DateRangeValues `json:"metrics"`
}

// DateRangeValues are the metric values of a row for one date range.
type DateRangeValues struct {
	Values []string `json:"values"`
}

// ColumnsResponse is the metadata endpoint's column listing.
type ColumnsResponse struct {
	Kind         string   `json:"kind"`
	Etag         string   `json:"etag"`
	TotalResults int      `json:"totalResults"`
	Items        []Column `json:"items"`
}

// Column is one dimension or metric known to the API.
type Column struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	Attributes ColumnAttributes `json:"attributes"`
}

// ColumnAttributes are the metadata attributes the extractor relies on.
type ColumnAttributes struct {
	Type     string `json:"type"`
	DataType string `json:"dataType"`
	Group    string `json:"group"`
	Status   string `json:"status"`
	UIName   string `json:"uiName"`
}

// Catalog converts the column listing into a reference type catalog.
func (r *ColumnsResponse) Catalog() *fieldtype.Catalog {
	columns := make([]fieldtype.Column, 0, len(r.Items))
	for _, item := range r.Items {
		columns = append(columns, fieldtype.Column{
			ID:       item.ID,
			Type:     item.Attributes.Type,
			DataType: item.Attributes.DataType,
			Status:   item.Attributes.Status,
		})
	}
	return fieldtype.NewCatalog(columns)
}
