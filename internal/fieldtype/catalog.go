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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the reference mapping of field names to declared data type
// tags, as published by the metadata endpoint.
type Catalog struct {
	Dimensions map[string]string `json:"dimensions" yaml:"dimensions"`
	Metrics    map[string]string `json:"metrics" yaml:"metrics"`
}

// Column is one entry of the metadata endpoint's column list.
type Column struct {
	ID       string
	Type     string // DIMENSION or METRIC
	DataType string // STRING, INTEGER, FLOAT, PERCENT, TIME, CURRENCY
	Status   string // PUBLIC or DEPRECATED
}

// NewCatalog builds a Catalog from metadata columns. Deprecated columns are
// kept since existing reports may still request them.
func NewCatalog(columns []Column) *Catalog {
	c := &Catalog{
		Dimensions: make(map[string]string),
		Metrics:    make(map[string]string),
	}
	for _, col := range columns {
		switch col.Type {
		case "DIMENSION":
			c.Dimensions[col.ID] = col.DataType
		case "METRIC":
			c.Metrics[col.ID] = col.DataType
		}
	}
	return c
}

// Lookup returns the declared data type tag for a field. A nil Catalog
// contains nothing.
func (c *Catalog) Lookup(kind Kind, name string) (string, bool) {
	if c == nil {
		return "", false
	}
	var m map[string]string
	if kind == Dimension {
		m = c.Dimensions
	} else {
		m = c.Metrics
	}
	tag, ok := m[name]
	return tag, ok
}

// Len returns the total number of catalogued fields.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Dimensions) + len(c.Metrics)
}

// LoadCatalog reads a cached catalog file. Files ending in .yaml or .yml
// are parsed as YAML, everything else as JSON.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	var c Catalog
	if isYAML(path) {
		err = yaml.Unmarshal(data, &c)
	} else {
		err = json.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	if c.Dimensions == nil {
		c.Dimensions = make(map[string]string)
	}
	if c.Metrics == nil {
		c.Metrics = make(map[string]string)
	}
	return &c, nil
}

// SaveCatalog writes the catalog to path, creating parent directories.
// The encoding follows the file extension as in LoadCatalog.
func SaveCatalog(c *Catalog, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save catalog file: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
