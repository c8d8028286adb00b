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
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
)

// Reporting API limits per request.
const (
	MaxDimensions = 9
	MaxMetrics    = 10
)

// Spec is the abstract definition of one output stream. It is immutable for
// the duration of a stream's extraction.
type Spec struct {
	// Name is the stream name; it is written to every record.
	Name string `yaml:"name"`

	// Dimensions and Metrics are requested in order. Both must be non-empty.
	Dimensions []string `yaml:"dimensions"`
	Metrics    []string `yaml:"metrics"`

	// DimensionFilters and MetricFilters become one filter clause per entry,
	// in the order they appear in the configuration.
	DimensionFilters FilterClauses `yaml:"dimension_filter_clauses,omitempty"`
	MetricFilters    FilterClauses `yaml:"metric_filter_clauses,omitempty"`

	// OrderBys sorts the report rows, first entry first.
	OrderBys OrderClauses `yaml:"order_bys,omitempty"`

	// Segments lists segment ids ("gaid::-3"). Requesting segments requires
	// the ga:segment dimension.
	Segments []string `yaml:"segments,omitempty"`

	// SamplingLevel is DEFAULT, SMALL or LARGE. Empty leaves it to the API.
	SamplingLevel string `yaml:"sampling_level,omitempty"`

	// PageSize overrides the source page size for this stream.
	PageSize *int `yaml:"page_size,omitempty"`

	// MaxRecords stops pagination for this stream once reached.
	MaxRecords *int `yaml:"max_records,omitempty"`
}

// Validate checks the structural invariants of a report specification.
func (s *Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("report name cannot be empty: %w", relaierrors.ErrConfig)
	}
	if len(s.Dimensions) == 0 {
		return fmt.Errorf("report %q must request at least one dimension: %w", s.Name, relaierrors.ErrConfig)
	}
	if len(s.Metrics) == 0 {
		return fmt.Errorf("report %q must request at least one metric: %w", s.Name, relaierrors.ErrConfig)
	}
	if len(s.Dimensions) > MaxDimensions {
		return fmt.Errorf("report %q requests %d dimensions, the API allows %d: %w",
			s.Name, len(s.Dimensions), MaxDimensions, relaierrors.ErrConfig)
	}
	if len(s.Metrics) > MaxMetrics {
		return fmt.Errorf("report %q requests %d metrics, the API allows %d: %w",
			s.Name, len(s.Metrics), MaxMetrics, relaierrors.ErrConfig)
	}
	for _, name := range append(append([]string{}, s.Dimensions...), s.Metrics...) {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("report %q contains an empty field name: %w", s.Name, relaierrors.ErrConfig)
		}
	}
	if s.PageSize != nil && *s.PageSize <= 0 {
		return fmt.Errorf("report %q page_size must be positive, got %d: %w", s.Name, *s.PageSize, relaierrors.ErrConfig)
	}
	if s.MaxRecords != nil && *s.MaxRecords <= 0 {
		return fmt.Errorf("report %q max_records must be positive, got %d: %w", s.Name, *s.MaxRecords, relaierrors.ErrConfig)
	}
	return nil
}

// FilterClause is one filter keyed by its target field. Dimension filters
// use Expressions and CaseSensitive, metric filters use ComparisonValue.
type FilterClause struct {
	Field           string   `yaml:"-"`
	Operator        string   `yaml:"operator,omitempty"`
	Not             bool     `yaml:"not,omitempty"`
	Expressions     []string `yaml:"expressions,omitempty"`
	CaseSensitive   bool     `yaml:"case_sensitive,omitempty"`
	ComparisonValue string   `yaml:"comparison_value,omitempty"`
}

// FilterClauses decodes from a YAML mapping of field name to filter payload,
// keeping the mapping's key order.
type FilterClauses []FilterClause

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *FilterClauses) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: filter clauses must be a mapping of field name to filter", node.Line)
	}
	clauses := make(FilterClauses, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		field := node.Content[i].Value
		value, err := normalizeFilterKeys(field, node.Content[i+1])
		if err != nil {
			return err
		}
		var clause FilterClause
		if err := value.Decode(&clause); err != nil {
			return fmt.Errorf("filter clause %q: %w", field, err)
		}
		clause.Field = field
		clauses = append(clauses, clause)
	}
	*f = clauses
	return nil
}

// filterKeyAliases maps accepted filter payload keys to their canonical
// spelling. The reporting API's camelCase names are accepted as aliases.
var filterKeyAliases = map[string]string{
	"operator":         "operator",
	"not":              "not",
	"expressions":      "expressions",
	"case_sensitive":   "case_sensitive",
	"caseSensitive":    "case_sensitive",
	"comparison_value": "comparison_value",
	"comparisonValue":  "comparison_value",
}

// normalizeFilterKeys returns a copy of a filter payload with aliased keys
// rewritten. Unknown keys are rejected so a typo cannot silently widen a
// filter.
func normalizeFilterKeys(field string, value *yaml.Node) (*yaml.Node, error) {
	if value.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: filter clause %q must be a mapping: %w", value.Line, field, relaierrors.ErrConfig)
	}
	out := *value
	out.Content = make([]*yaml.Node, 0, len(value.Content))
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i]
		canonical, ok := filterKeyAliases[key.Value]
		if !ok {
			return nil, fmt.Errorf("line %d: filter clause %q has unknown key %q: %w", key.Line, field, key.Value, relaierrors.ErrConfig)
		}
		renamed := *key
		renamed.Value = canonical
		out.Content = append(out.Content, &renamed, value.Content[i+1])
	}
	return &out, nil
}

// MarshalYAML keeps the mapping form on the way out.
func (f FilterClauses) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, clause := range f {
		var value yaml.Node
		if err := value.Encode(clause); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: clause.Field}, &value)
	}
	return node, nil
}

// OrderClause sorts by one field.
type OrderClause struct {
	Field     string
	SortOrder string
}

// OrderClauses decodes from a YAML mapping of field name to sort order
// (ASCENDING or DESCENDING), keeping the mapping's key order.
type OrderClauses []OrderClause

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *OrderClauses) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: order_bys must be a mapping of field name to sort order", node.Line)
	}
	clauses := make(OrderClauses, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		clauses = append(clauses, OrderClause{
			Field:     node.Content[i].Value,
			SortOrder: node.Content[i+1].Value,
		})
	}
	*o = clauses
	return nil
}

// MarshalYAML keeps the mapping form on the way out.
func (o OrderClauses) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, clause := range o {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: clause.Field},
			&yaml.Node{Kind: yaml.ScalarNode, Value: clause.SortOrder})
	}
	return node, nil
}
