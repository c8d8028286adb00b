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

package report

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Dimension is a requested dimension on the wire.
type Dimension struct {
	Name string `json:"name"`
}

// Metric is a requested metric on the wire.
type Metric struct {
	Expression string `json:"expression"`
}

// DimensionFilter restricts rows by a dimension value.
type DimensionFilter struct {
	DimensionName string   `json:"dimensionName"`
	Not           bool     `json:"not,omitempty"`
	Operator      string   `json:"operator,omitempty"`
	Expressions   []string `json:"expressions,omitempty"`
	CaseSensitive bool     `json:"caseSensitive,omitempty"`
}

// DimensionFilterClause groups filters; the API ORs filters inside a clause
// and ANDs separate clauses.
type DimensionFilterClause struct {
	Filters []DimensionFilter `json:"filters"`
}

// MetricFilter restricts rows by a metric value.
type MetricFilter struct {
	MetricName      string `json:"metricName"`
	Not             bool   `json:"not,omitempty"`
	Operator        string `json:"operator,omitempty"`
	ComparisonValue string `json:"comparisonValue,omitempty"`
}

// MetricFilterClause groups metric filters.
type MetricFilterClause struct {
	Filters []MetricFilter `json:"filters"`
}

// OrderBy sorts the report rows.
type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortOrder string `json:"sortOrder,omitempty"`
}

// Segment selects a segment by id.
type Segment struct {
	SegmentID string `json:"segmentId"`
}

// Definition is the wire-level report definition built once per stream and
// reused for every page. Optional parts are nil when not configured.
type Definition struct {
	Dimensions             []Dimension             `json:"dimensions"`
	Metrics                []Metric                `json:"metrics"`
	DimensionFilterClauses []DimensionFilterClause `json:"dimensionFilterClauses,omitempty"`
	MetricFilterClauses    []MetricFilterClause    `json:"metricFilterClauses,omitempty"`
	OrderBys               []OrderBy               `json:"orderBys,omitempty"`
	Segments               []Segment               `json:"segments,omitempty"`
	SamplingLevel          string                  `json:"samplingLevel,omitempty"`

	// Paging hints are consumed by the pagination engine, not sent as part
	// of the definition.
	PageSize   *int `json:"-"`
	MaxRecords *int `json:"-"`
}

// Build translates a Spec into its wire-level Definition. It has no side
// effects and returns the same Definition for the same Spec.
func Build(spec Spec) Definition {
	def := Definition{
		Dimensions: make([]Dimension, 0, len(spec.Dimensions)),
		Metrics:    make([]Metric, 0, len(spec.Metrics)),
	}

	for _, d := range spec.Dimensions {
		def.Dimensions = append(def.Dimensions, Dimension{Name: CanonicalName(d)})
	}
	for _, m := range spec.Metrics {
		def.Metrics = append(def.Metrics, Metric{Expression: CanonicalName(m)})
	}

	if len(spec.Segments) > 0 {
		def.Segments = make([]Segment, 0, len(spec.Segments))
		for _, id := range spec.Segments {
			def.Segments = append(def.Segments, Segment{SegmentID: id})
		}
	}

	def.SamplingLevel = spec.SamplingLevel

	if len(spec.DimensionFilters) > 0 {
		def.DimensionFilterClauses = make([]DimensionFilterClause, 0, len(spec.DimensionFilters))
		for _, c := range spec.DimensionFilters {
			def.DimensionFilterClauses = append(def.DimensionFilterClauses, DimensionFilterClause{
				Filters: []DimensionFilter{{
					DimensionName: CanonicalName(c.Field),
					Not:           c.Not,
					Operator:      c.Operator,
					Expressions:   c.Expressions,
					CaseSensitive: c.CaseSensitive,
				}},
			})
		}
	}

	if len(spec.MetricFilters) > 0 {
		def.MetricFilterClauses = make([]MetricFilterClause, 0, len(spec.MetricFilters))
		for _, c := range spec.MetricFilters {
			def.MetricFilterClauses = append(def.MetricFilterClauses, MetricFilterClause{
				Filters: []MetricFilter{{
					MetricName:      CanonicalName(c.Field),
					Not:             c.Not,
					Operator:        c.Operator,
					ComparisonValue: c.ComparisonValue,
				}},
			})
		}
	}

	if len(spec.OrderBys) > 0 {
		def.OrderBys = make([]OrderBy, 0, len(spec.OrderBys))
		for _, o := range spec.OrderBys {
			def.OrderBys = append(def.OrderBys, OrderBy{
				FieldName: CanonicalName(o.Field),
				SortOrder: o.SortOrder,
			})
		}
	}

	def.PageSize = spec.PageSize
	def.MaxRecords = spec.MaxRecords

	return def
}

// Fingerprint returns a stable hash of the wire definition. It is stored
// with the stream's bookmark so a changed report can be detected on the
// next run.
func Fingerprint(def Definition) (string, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("failed to encode report definition: %w", err)
	}
	return fmt.Sprintf("%016x", xxh3.Hash(data)), nil
}
