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

// Package metadata tracks and persists an audit record of every sync run:
// which streams ran, how many pages and records each produced, the bookmark
// it reached, and how failed streams failed.
//
// Metadata is saved as JSON files alongside state files, allowing external
// tools to analyze run history.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker collects statistics during a run. Create one at the start of each
// run. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	runID     string
	startTime time.Time
	apiCalls  int
	streams   []StreamResult
}

// New creates a tracker with a fresh run id, started now.
func New() *Tracker {
	return &Tracker{
		runID:     uuid.NewString(),
		startTime: time.Now(),
	}
}

// RunID returns the unique id of the run.
func (t *Tracker) RunID() string {
	return t.runID
}

// AddAPICalls records API calls made by a stream.
func (t *Tracker) AddAPICalls(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apiCalls += n
}

// RecordStream stores the outcome of one stream.
func (t *Tracker) RecordStream(result StreamResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streams = append(t.streams, result)
}

// Streams returns a copy of the recorded stream outcomes.
func (t *Tracker) Streams() []StreamResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]StreamResult(nil), t.streams...)
}

// GenerateMetadata creates the run record. Call this at the end of a run.
func (t *Tracker) GenerateMetadata(relayVersion string, params RunParams, previous *RunRef) *RunMetadata {
	t.mu.Lock()
	defer t.mu.Unlock()

	completedAt := time.Now()
	results := RunResults{
		APICallCount: t.apiCalls,
		Duration:     completedAt.Sub(t.startTime).String(),
		StartedAt:    t.startTime,
		CompletedAt:  completedAt,
	}
	for _, s := range t.streams {
		results.TotalRecords += s.Records
		if s.Status == StatusSucceeded {
			results.StreamsSucceeded++
		} else {
			results.StreamsFailed++
		}
	}

	return &RunMetadata{
		RelayVersion: relayVersion,
		RunID:        t.runID,
		Parameters:   params,
		Streams:      append([]StreamResult(nil), t.streams...),
		Results:      results,
		PreviousRun:  previous,
	}
}

// SaveMetadata persists a run record to a JSON file in dir. The file is
// written to a temporary name and renamed to prevent partial files.
//
// The metadata file will be named: run-metadata-{unix start}-{run id}.json
func SaveMetadata(metadata *RunMetadata, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create metadata directory: %w", err)
	}

	filename := fmt.Sprintf("run-metadata-%d-%s.json", metadata.Results.StartedAt.Unix(), metadata.RunID)
	path := filepath.Join(dir, filename)
	tmpFile := path + ".tmp"

	file, err := os.Create(tmpFile)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata file: %w", err)
	}

	if err := WriteMetadataToWriter(metadata, file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpFile)
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return "", fmt.Errorf("failed to close metadata file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		return "", fmt.Errorf("failed to save metadata file: %w", err)
	}
	return path, nil
}

// LoadLatestMetadata loads the most recently completed run record of viewID
// from dir. Returns nil if there is none.
func LoadLatestMetadata(dir, viewID string) (*RunMetadata, error) {
	files, err := filepath.Glob(filepath.Join(dir, "run-metadata-*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata files: %w", err)
	}

	var latest *RunMetadata
	for _, path := range files {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}
		var m RunMetadata
		if json.Unmarshal(data, &m) != nil {
			continue
		}
		if m.Parameters.ViewID != viewID {
			continue
		}
		if latest == nil || m.Results.CompletedAt.After(latest.Results.CompletedAt) {
			latest = &m
		}
	}
	return latest, nil
}

// Ref returns a reference to this run for linking from the next one.
func (m *RunMetadata) Ref() *RunRef {
	if m == nil {
		return nil
	}
	return &RunRef{RunID: m.RunID, CompletedAt: m.Results.CompletedAt}
}

// WriteMetadataToWriter serializes metadata to JSON and writes it to the
// provided io.Writer. The output is formatted with indentation for readability.
func WriteMetadataToWriter(metadata *RunMetadata, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}
