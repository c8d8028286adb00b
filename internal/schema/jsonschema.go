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

package schema

// JSONSchema renders the declaration as a JSON Schema object. Required
// properties have a single type, optional ones also accept null.
func (d *Declaration) JSONSchema() map[string]any {
	properties := make(map[string]any, len(d.Properties))
	required := make([]string, 0, len(d.Properties))

	for _, p := range d.Properties {
		types := []string{p.Type.String()}
		if p.Required {
			required = append(required, p.Name)
		} else {
			types = append(types, "null")
		}

		prop := map[string]any{"type": types}
		if p.Format != "" {
			prop["format"] = p.Format
		}
		properties[p.Name] = prop
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
