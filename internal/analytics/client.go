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

package analytics

import "context"

// Client defines the interface for interacting with the reporting API.
// This interface allows for easy mocking in tests.
type Client interface {
	// BatchGet executes one reports:batchGet call. quotaUser identifies the
	// caller for per-user rate limits and may be empty.
	BatchGet(ctx context.Context, req *BatchGetRequest, quotaUser string) (*BatchGetResponse, error)

	// Columns lists the dimensions and metrics published by the metadata
	// endpoint, used to build the reference type catalog.
	Columns(ctx context.Context) (*ColumnsResponse, error)
}

// CallCounter is implemented by clients that count every request sent,
// failed attempts and retries included.
type CallCounter interface {
	Calls() int
}
