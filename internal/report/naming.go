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
	"strings"
	"unicode"
)

const (
	namespace      = "ga:"
	namespaceAlias = "ga_"
)

// CanonicalName returns the colon form of a field name, accepting the
// underscore alias used in configuration ("ga_sessions" -> "ga:sessions").
func CanonicalName(name string) string {
	if strings.HasPrefix(name, namespaceAlias) {
		return namespace + name[len(namespaceAlias):]
	}
	return name
}

// ColumnName returns the output column for a field name: the namespace colon
// becomes an underscore and camel case becomes lower snake case
// ("ga:sessionsPerUser" -> "ga_sessions_per_user"). Applying it to its own
// output is a no-op.
func ColumnName(name string) string {
	name = strings.Replace(name, namespace, namespaceAlias, 1)

	var b strings.Builder
	b.Grow(len(name) + 4)
	for _, r := range name {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimLeft(b.String(), "_")
}
