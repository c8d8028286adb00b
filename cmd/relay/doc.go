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

// Package main implements the analytics-relay command-line interface.
// This tool extracts reports from the Analytics Reporting API v4 and
// outputs them as schema-tagged NDJSON messages, keeping a date bookmark
// per report so that subsequent runs only request new days.
//
// The CLI supports:
//   - Syncing every configured report, or a subset with --stream
//   - Printing the synthesized schema of every report (schema)
//   - Caching the reference catalog of dimensions and metrics (catalog)
//   - Output to stdout, a file, or s3:// object storage
//   - Bookmarks in local state files or a Postgres table
//
// Usage:
//
//	analytics-relay sync [flags]
//	analytics-relay schema [flags]
//	analytics-relay catalog --output catalog.json
//
// Example:
//
//	export ANALYTICS_ACCESS_TOKEN=ya29...
//	analytics-relay sync --config relay.yaml --output records.ndjson
//
// Exit codes:
//   - 0: Success
//   - 1: General error, or at least one stream failed
//   - 2: Authentication error
//   - 3: Network error
//   - 4: Configuration error or unsupported field
package main
