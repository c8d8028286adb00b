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

package fieldtype

import (
	"fmt"
	"strings"

	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
)

// Kind distinguishes dimensions from metrics. The two share a namespace
// but follow different pattern rules.
type Kind int

const (
	Dimension Kind = iota
	Metric
)

func (k Kind) String() string {
	switch k {
	case Dimension:
		return "dimension"
	case Metric:
		return "metric"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Type is the primitive value type of a column.
type Type int

const (
	String Type = iota
	Integer
	Number
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case Number:
		return "number"
	default:
		return "string"
	}
}

// UnsupportedFieldError reports a field name that matched no pattern rule
// and is missing from the reference catalog.
type UnsupportedFieldError struct {
	Kind Kind
	Name string
}

func (e *UnsupportedFieldError) Error() string {
	return fmt.Sprintf("unsupported %s %q: not a custom field and not present in the reference catalog", e.Kind, e.Name)
}

// Unwrap allows errors.Is(err, ErrUnsupportedField).
func (e *UnsupportedFieldError) Unwrap() error {
	return relaierrors.ErrUnsupportedField
}

// rule matches a field name of the given kind that is always string typed.
type rule struct {
	kind     Kind
	prefixes []string
	suffixes []string
	exact    string
}

func (r rule) matches(kind Kind, name string) bool {
	if r.kind != kind {
		return false
	}
	if r.exact != "" {
		return name == r.exact
	}
	if !hasAnyPrefix(name, r.prefixes) {
		return false
	}
	return len(r.suffixes) == 0 || hasAnySuffix(name, r.suffixes)
}

// customFieldRules are evaluated in order before any catalog lookup.
var customFieldRules = []rule{
	{kind: Dimension, exact: "ga:segment"},
	{kind: Dimension, prefixes: []string{"ga:dimension", "ga:customVarName", "ga:customVarValue"}},
	{
		kind:     Metric,
		prefixes: []string{"ga:goal"},
		suffixes: []string{"Starts", "Completions", "Value", "ConversionRate", "Abandons", "AbandonRate"},
	},
	{kind: Metric, prefixes: []string{"ga:searchGoal"}, suffixes: []string{"ConversionRate"}},
	{kind: Metric, prefixes: []string{"ga:metric", "ga:calcMetric"}},
}

// Infer returns the value type of the named field. Custom field patterns
// take priority over the catalog; names matched by neither yield an
// *UnsupportedFieldError.
func Infer(kind Kind, name string, catalog *Catalog) (Type, error) {
	for _, r := range customFieldRules {
		if r.matches(kind, name) {
			return String, nil
		}
	}

	if declared, ok := catalog.Lookup(kind, name); ok {
		return FromDataType(declared), nil
	}

	return String, &UnsupportedFieldError{Kind: kind, Name: name}
}

// FromDataType maps a catalog data type tag to a Type.
func FromDataType(tag string) Type {
	switch tag {
	case "INTEGER":
		return Integer
	case "FLOAT", "PERCENT", "TIME":
		return Number
	default:
		return String
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, p := range suffixes {
		if strings.HasSuffix(s, p) {
			return true
		}
	}
	return false
}
