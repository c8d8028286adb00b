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

// Package extract drives cursor pagination of one report stream.
//
// An Engine issues one batchGet call at a time, normalizes every page into
// records as soon as it arrives, and decides after each page whether to
// continue: it stops when the API returns no further page token or when the
// configured record ceiling is reached, and fails fast when the API returns
// the same page token twice in a row.
//
// Records are exposed as an iter.Seq2 so the caller pulls them one by one;
// the next page is only requested once every record of the current page has
// been consumed.
package extract
