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

package normalize

import (
	"fmt"
	"iter"
	"math"
	"strconv"
	"time"

	"github.com/sirseerhq/analytics-relay/internal/analytics"
	"github.com/sirseerhq/analytics-relay/internal/fieldtype"
	"github.com/sirseerhq/analytics-relay/internal/report"
)

// Column names added to every record, or derived from date dimensions.
const (
	ColumnViewID          = "view_id"
	ColumnStream          = "stream"
	ColumnReportStartDate = "report_start_date"
	ColumnReportEndDate   = "report_end_date"
	ColumnDate            = "ga_date"
	ColumnDateDT          = "ga_date_dt"
	columnYearMonth       = "ga_year_month"
)

// Record is one normalized output row.
type Record map[string]any

// Params are the per-stream values stamped on every record.
type Params struct {
	ViewID string
	Stream string
	// StartDate is the configured start date, not the bookmark.
	StartDate string
	// EndDate is the resolved, inclusive report end date.
	EndDate string
}

// Normalizer converts report pages of one stream into records. It caches
// the inferred type of each header, so one Normalizer should be used per
// stream.
type Normalizer struct {
	params  Params
	catalog *fieldtype.Catalog
	types   map[string]fieldtype.Type
}

// New creates a Normalizer for one stream.
func New(params Params, catalog *fieldtype.Catalog) *Normalizer {
	return &Normalizer{
		params:  params,
		catalog: catalog,
		types:   make(map[string]fieldtype.Type),
	}
}

// Records returns a single-pass sequence of the rows of rep. Iteration stops
// at the first row that cannot be coerced; that error is yielded with a nil
// record.
func (n *Normalizer) Records(rep *analytics.Report) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if rep == nil {
			return
		}
		header := rep.ColumnHeader
		for _, row := range rep.Data.Rows {
			rec, err := n.record(header, row)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (n *Normalizer) record(header analytics.ColumnHeader, row analytics.ReportRow) (Record, error) {
	rec := Record{
		ColumnViewID: n.params.ViewID,
		ColumnStream: n.params.Stream,
	}

	for i, name := range header.Dimensions {
		if i >= len(row.Dimensions) {
			break
		}
		raw := row.Dimensions[i]
		column := report.ColumnName(name)

		value, err := n.coerce(fieldtype.Dimension, name, raw)
		if err != nil {
			return nil, err
		}
		rec[column] = value

		switch column {
		case ColumnDate:
			day, err := reformat(raw, "20060102", "2006-01-02")
			if err != nil {
				return nil, n.columnError(ColumnDateDT, raw, err)
			}
			rec[ColumnDateDT] = day
		case columnYearMonth:
			month, err := time.Parse("200601", raw)
			if err != nil {
				return nil, n.columnError(ColumnDate, raw, err)
			}
			rec[ColumnDate] = month.Format("20060102")
			rec[ColumnDateDT] = month.Format("2006-01-02")
		}
	}

	entries := header.MetricHeader.MetricHeaderEntries
	for _, set := range row.Metrics {
		for i, entry := range entries {
			if i >= len(set.Values) {
				break
			}
			value, err := n.coerce(fieldtype.Metric, entry.Name, set.Values[i])
			if err != nil {
				return nil, err
			}
			rec[report.ColumnName(entry.Name)] = value
		}
	}

	rec[ColumnReportStartDate] = n.params.StartDate
	rec[ColumnReportEndDate] = n.params.EndDate
	return rec, nil
}

func (n *Normalizer) coerce(kind fieldtype.Kind, name, raw string) (any, error) {
	typ, err := n.typeOf(kind, name)
	if err != nil {
		return nil, fmt.Errorf("stream %q: %w", n.params.Stream, err)
	}

	switch typ {
	case fieldtype.Integer:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, n.columnError(report.ColumnName(name), raw, err)
		}
		return v, nil
	case fieldtype.Number:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, n.columnError(report.ColumnName(name), raw, err)
		}
		return Round(v), nil
	default:
		return raw, nil
	}
}

func (n *Normalizer) typeOf(kind fieldtype.Kind, name string) (fieldtype.Type, error) {
	key := kind.String() + "/" + name
	if typ, ok := n.types[key]; ok {
		return typ, nil
	}
	typ, err := fieldtype.Infer(kind, name, n.catalog)
	if err != nil {
		return fieldtype.String, err
	}
	n.types[key] = typ
	return typ, nil
}

func (n *Normalizer) columnError(column, raw string, err error) error {
	return fmt.Errorf("stream %q: column %q: cannot convert value %q: %w", n.params.Stream, column, raw, err)
}

// Round rounds v to 10 decimal places.
func Round(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	const scale = 1e10
	if math.Abs(v) >= math.MaxFloat64/scale {
		return v
	}
	return math.Round(v*scale) / scale
}

func reformat(value, from, to string) (string, error) {
	t, err := time.Parse(from, value)
	if err != nil {
		return "", err
	}
	return t.Format(to), nil
}
