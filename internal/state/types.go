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

package state

import (
	"context"
	"time"
)

// CurrentVersion is the current state schema version.
// Increment this when making breaking changes to the Document structure.
const CurrentVersion = 2

// StreamState is the bookmark of one stream.
type StreamState struct {
	// Stream is the stream name.
	Stream string `json:"stream"`

	// ReplicationKey names the record column the bookmark refers to.
	ReplicationKey string `json:"replication_key"`

	// ReplicationKeyValue is the largest value of ReplicationKey emitted by
	// the last successful sync, for example "20240131".
	ReplicationKeyValue string `json:"replication_key_value"`

	// Fingerprint identifies the report definition the bookmark was
	// written for.
	Fingerprint string `json:"fingerprint,omitempty"`

	// UpdatedAt records when the bookmark was written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads and writes stream bookmarks.
type Store interface {
	// Get returns the bookmark of stream, or nil when none is stored.
	Get(ctx context.Context, stream string) (*StreamState, error)

	// Put stores a bookmark, replacing the previous one for its stream.
	Put(ctx context.Context, st *StreamState) error
}

// Document is the on-disk layout of a FileStore.
type Document struct {
	// Version indicates the schema version of this state file.
	Version int `json:"version"`

	// Checksum is the SHA256 hash of the document (excluding this field).
	// Used to detect corruption or tampering.
	Checksum string `json:"checksum"`

	// ViewID is the reporting view the bookmarks belong to.
	ViewID string `json:"view_id,omitempty"`

	// Streams maps stream names to their bookmarks.
	Streams map[string]StreamState `json:"streams"`
}
