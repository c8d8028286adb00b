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

// Package state persists per-stream incremental sync bookmarks.
//
// A bookmark records the largest replication key value emitted by the last
// successful sync of a stream, together with a fingerprint of the report
// definition that produced it. The next run resumes from the bookmark.
//
// Two Store implementations are provided. FileStore keeps every stream of a
// view in one JSON document, written atomically with a write-to-temp-and-rename
// pattern and protected by a SHA256 checksum and a schema version.
// PostgresStore keeps one row per view and stream, for deployments where
// several hosts share bookmarks.
//
// Example usage:
//
//	store := state.NewFileStore(state.FilePath(dir, "188392047"))
//	prev, err := store.Get(ctx, "sessions_by_day")
//	...
//	err = store.Put(ctx, &state.StreamState{
//	    Stream:              "sessions_by_day",
//	    ReplicationKey:      "ga_date",
//	    ReplicationKeyValue: "20240131",
//	})
package state
