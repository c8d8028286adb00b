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

// Package analytics provides the client for the Analytics Reporting API v4
// and the Management API metadata endpoint.
//
// The Client interface exposes the two remote operations the extractor
// needs: a batch report query (one call per page) and the column metadata
// listing used to build the reference type catalog. HTTPClient is the
// production implementation; it authenticates with a bearer access token,
// throttles requests with a token bucket, caps response sizes and turns
// every non-2xx response into a classified *apierror.Error.
//
// RetryClient wraps any Client with bounded exponential backoff that retries
// only transient failures (backend server errors and network timeouts) and
// gives up immediately on everything else.
//
// Example:
//
//	client := analytics.NewHTTPClient(token, analytics.DefaultClientConfig())
//	retrying := analytics.NewRetryClient(client, nil, logger)
//	resp, err := retrying.BatchGet(ctx, req, "quota-user-1")
package analytics
