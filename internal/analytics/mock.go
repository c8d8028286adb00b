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

import (
	"context"
	"sync"
)

// MockClient is a scripted implementation of Client for tests. BatchGet
// returns the configured pages in order; calls past the last page return an
// empty final page.
type MockClient struct {
	mu sync.Mutex

	pages      []*BatchGetResponse
	errs       map[int]error
	columns    *ColumnsResponse
	columnsErr error

	// Requests records every BatchGet request body in call order.
	Requests []BatchGetRequest
	// QuotaUsers records the quotaUser of every BatchGet call.
	QuotaUsers []string
	// ColumnsCalls counts Columns calls.
	ColumnsCalls int
}

// MockOption configures a MockClient.
type MockOption func(*MockClient)

// WithPages sets the responses returned by successive BatchGet calls.
func WithPages(pages ...*BatchGetResponse) MockOption {
	return func(m *MockClient) {
		m.pages = append(m.pages, pages...)
	}
}

// WithCallError makes the BatchGet call with the given zero-based index fail.
// A failing call does not consume a page.
func WithCallError(call int, err error) MockOption {
	return func(m *MockClient) {
		m.errs[call] = err
	}
}

// WithColumns sets the Columns response.
func WithColumns(resp *ColumnsResponse) MockOption {
	return func(m *MockClient) {
		m.columns = resp
	}
}

// WithColumnsError makes Columns fail.
func WithColumnsError(err error) MockOption {
	return func(m *MockClient) {
		m.columnsErr = err
	}
}

// NewMockClient creates a MockClient.
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{errs: make(map[int]error)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BatchGet implements Client.
func (m *MockClient) BatchGet(ctx context.Context, req *BatchGetRequest, quotaUser string) (*BatchGetResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	call := len(m.Requests)
	m.Requests = append(m.Requests, *req)
	m.QuotaUsers = append(m.QuotaUsers, quotaUser)

	if err, ok := m.errs[call]; ok {
		return nil, err
	}

	served := 0
	for i := 0; i < call; i++ {
		if _, failed := m.errs[i]; !failed {
			served++
		}
	}
	if served < len(m.pages) {
		return m.pages[served], nil
	}
	return &BatchGetResponse{Reports: []Report{{}}}, nil
}

// Columns implements Client.
func (m *MockClient) Columns(ctx context.Context) (*ColumnsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.ColumnsCalls++
	if m.columnsErr != nil {
		return nil, m.columnsErr
	}
	if m.columns == nil {
		return &ColumnsResponse{}, nil
	}
	return m.columns, nil
}

// Calls implements CallCounter, counting BatchGet and Columns calls.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests) + m.ColumnsCalls
}

// CallCount returns the number of BatchGet calls made so far.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// NewPage builds a single-report response, handy for scripting a MockClient.
func NewPage(header ColumnHeader, rows []ReportRow, nextPageToken string) *BatchGetResponse {
	return &BatchGetResponse{
		Reports: []Report{{
			ColumnHeader:  header,
			Data:          ReportData{Rows: rows, RowCount: len(rows)},
			NextPageToken: nextPageToken,
		}},
	}
}
