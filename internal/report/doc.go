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

// Package report turns the user-authored report specification of a stream
// into the wire-level report definition sent to the reporting API, and owns
// the naming rules shared by the request, the records and the schema.
//
// Field names use the API's colon namespace ("ga:sessions"). Configuration
// may use the underscore alias ("ga_sessions"), which is normalized back to
// the colon form when the request is built. Output columns go the other way:
// ColumnName converts "ga:sessionsPerUser" into "ga_sessions_per_user".
package report
