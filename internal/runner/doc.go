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

// Package runner drives a sync run: it synthesizes every stream's schema,
// extracts each stream through the pagination engine into the sink, and
// advances bookmarks for the streams that complete.
//
// Streams run sequentially. An authentication failure aborts the run; any
// other classified failure skips the stream, is logged with its kind, and
// is reported in the Result.
package runner
