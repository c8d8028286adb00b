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

// Package schema derives the output schema of a stream from its report
// specification, before any data is requested.
package schema

import (
	"fmt"
	"log/slog"

	"github.com/sirseerhq/analytics-relay/internal/fieldtype"
	"github.com/sirseerhq/analytics-relay/internal/normalize"
	"github.com/sirseerhq/analytics-relay/internal/report"
)

// FormatDate marks string properties holding YYYY-MM-DD dates.
const FormatDate = "date"

// Property is one column of a stream.
type Property struct {
	Name     string
	Type     fieldtype.Type
	Format   string
	Required bool
}

// Declaration is the synthesized schema of a stream.
type Declaration struct {
	Stream     string
	Properties []Property
	// KeyProperties uniquely identify a record.
	KeyProperties []string
	// ReplicationKey is empty when the stream has no date dimension.
	ReplicationKey       string
	IncrementalSupported bool
}

// Property returns the named property.
func (d *Declaration) Property(name string) (Property, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Synthesize builds the schema declaration for one stream. Field types are
// inferred with the catalog; the first field that cannot be typed fails the
// whole declaration. A nil logger discards the incremental sync warning.
func Synthesize(stream string, spec report.Spec, catalog *fieldtype.Catalog, logger *slog.Logger) (*Declaration, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := &builder{decl: &Declaration{Stream: stream}, seen: make(map[string]bool)}
	b.add(Property{Name: normalize.ColumnViewID, Type: fieldtype.String, Required: true})
	b.add(Property{Name: normalize.ColumnStream, Type: fieldtype.String, Required: true})
	b.key(normalize.ColumnViewID)

	dateDimension := false
	for _, name := range spec.Dimensions {
		canonical := report.CanonicalName(name)

		switch canonical {
		case "ga:date":
			dateDimension = true
			b.add(Property{Name: normalize.ColumnDateDT, Type: fieldtype.String, Format: FormatDate, Required: true})
		case "ga:yearMonth":
			dateDimension = true
			b.add(Property{Name: normalize.ColumnDate, Type: fieldtype.String, Required: true})
			b.key(normalize.ColumnDate)
			b.add(Property{Name: normalize.ColumnDateDT, Type: fieldtype.String, Format: FormatDate, Required: true})
		}

		typ, err := fieldtype.Infer(fieldtype.Dimension, canonical, catalog)
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", stream, err)
		}
		column := report.ColumnName(canonical)
		b.add(Property{Name: column, Type: typ, Required: true})
		b.key(column)
	}

	for _, name := range spec.Metrics {
		canonical := report.CanonicalName(name)
		typ, err := fieldtype.Infer(fieldtype.Metric, canonical, catalog)
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", stream, err)
		}
		b.add(Property{Name: report.ColumnName(canonical), Type: typ})
	}

	b.add(Property{Name: normalize.ColumnReportStartDate, Type: fieldtype.String, Format: FormatDate, Required: true})
	b.add(Property{Name: normalize.ColumnReportEndDate, Type: fieldtype.String, Format: FormatDate, Required: true})

	if dateDimension {
		b.decl.ReplicationKey = normalize.ColumnDate
		b.decl.IncrementalSupported = true
	} else {
		logger.Warn("incremental sync not supported, ga:date or ga:yearMonth is required as a dimension",
			"stream", stream)
		b.key(normalize.ColumnReportStartDate)
		b.key(normalize.ColumnReportEndDate)
	}

	return b.decl, nil
}

type builder struct {
	decl *Declaration
	seen map[string]bool
	keys map[string]bool
}

// add appends p unless a property with the same name exists.
func (b *builder) add(p Property) {
	if b.seen[p.Name] {
		return
	}
	b.seen[p.Name] = true
	b.decl.Properties = append(b.decl.Properties, p)
}

func (b *builder) key(name string) {
	if b.keys == nil {
		b.keys = make(map[string]bool)
	}
	if b.keys[name] {
		return
	}
	b.keys[name] = true
	b.decl.KeyProperties = append(b.decl.KeyProperties, name)
}
