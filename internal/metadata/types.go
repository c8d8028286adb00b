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

// Package metadata types define the structures used for tracking and
// persisting information about sync runs.
package metadata

import (
	"time"
)

// Stream outcomes.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunMetadata is the audit record of a single sync run.
type RunMetadata struct {
	RelayVersion string         `json:"relay_version"`
	RunID        string         `json:"run_id"`
	Parameters   RunParams      `json:"parameters"`
	Streams      []StreamResult `json:"streams"`
	Results      RunResults     `json:"results"`
	PreviousRun  *RunRef        `json:"previous_run,omitempty"`
}

// RunParams captures the inputs of a run so it can be reproduced.
type RunParams struct {
	ViewID     string `json:"view_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	PageSize   int    `json:"page_size"`
	MaxRecords int    `json:"max_records,omitempty"`
	QuotaUser  string `json:"quota_user,omitempty"`
}

// StreamResult records how one stream went.
type StreamResult struct {
	Stream    string `json:"stream"`
	Status    string `json:"status"`
	Pages     int    `json:"pages"`
	Records   int    `json:"records"`
	Bookmark  string `json:"bookmark,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
	Duration  string `json:"duration"`
}

// RunResults are the totals of a run.
type RunResults struct {
	TotalRecords     int       `json:"total_records"`
	APICallCount     int       `json:"api_calls_made"`
	StreamsSucceeded int       `json:"streams_succeeded"`
	StreamsFailed    int       `json:"streams_failed"`
	Duration         string    `json:"run_duration"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at"`
}

// RunRef links a run to the previous run of the same view.
type RunRef struct {
	RunID       string    `json:"run_id"`
	CompletedAt time.Time `json:"completed_at"`
}
