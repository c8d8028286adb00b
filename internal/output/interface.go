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

package output

import (
	"time"

	"github.com/sirseerhq/analytics-relay/internal/normalize"
	"github.com/sirseerhq/analytics-relay/internal/schema"
)

// Message types.
const (
	TypeSchema = "SCHEMA"
	TypeRecord = "RECORD"
	TypeState  = "STATE"
)

// Sink receives the messages of a run.
// Implementations must emit a stream's schema before its records.
type Sink interface {
	// WriteSchema announces the schema of a stream.
	WriteSchema(decl *schema.Declaration) error

	// WriteRecord writes a single record of stream.
	// The record should be immediately flushed to avoid memory accumulation.
	WriteRecord(stream string, rec normalize.Record) error

	// WriteState emits the current bookmarks.
	WriteState(value map[string]any) error

	// Close flushes and releases the underlying resources.
	Close() error
}

// SchemaMessage announces a stream.
type SchemaMessage struct {
	Type               string         `json:"type"`
	Stream             string         `json:"stream"`
	Schema             map[string]any `json:"schema"`
	KeyProperties      []string       `json:"key_properties"`
	BookmarkProperties []string       `json:"bookmark_properties,omitempty"`
}

// RecordMessage carries one record.
type RecordMessage struct {
	Type          string           `json:"type"`
	Stream        string           `json:"stream"`
	Record        normalize.Record `json:"record"`
	TimeExtracted time.Time        `json:"time_extracted"`
}

// StateMessage carries bookmarks.
type StateMessage struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

// NewSchemaMessage builds the SCHEMA message of a declaration.
func NewSchemaMessage(decl *schema.Declaration) SchemaMessage {
	msg := SchemaMessage{
		Type:          TypeSchema,
		Stream:        decl.Stream,
		Schema:        decl.JSONSchema(),
		KeyProperties: decl.KeyProperties,
	}
	if decl.ReplicationKey != "" {
		msg.BookmarkProperties = []string{decl.ReplicationKey}
	}
	return msg
}
