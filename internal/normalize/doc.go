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

// Package normalize turns reporting API response pages into flat records.
//
// Each row becomes one Record keyed by snake_case column names. Dimension
// values and metric values are coerced according to the inferred field type,
// date dimensions gain synthetic ga_date_dt (and, for monthly reports,
// ga_date) columns, and every record is stamped with the view id, stream
// name and the report date range. Records are produced lazily, one row at a
// time, so a page is never materialized twice.
package normalize
