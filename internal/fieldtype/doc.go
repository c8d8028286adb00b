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

// Package fieldtype infers the value type of reporting API dimensions and
// metrics. Field names are open-ended: besides the thousands of names the
// metadata endpoint publishes, every view can define custom dimensions,
// custom variables, goals and calculated metrics that never appear in any
// catalog. Those are recognized by name pattern and always typed as strings.
// Everything else must be present in the reference Catalog; an unknown name
// is a configuration error rather than a silent string default.
package fieldtype
