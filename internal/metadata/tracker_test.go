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

package metadata

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNew_RunID(t *testing.T) {
	a, b := New(), New()
	if _, err := uuid.Parse(a.RunID()); err != nil {
		t.Errorf("RunID %q is not a UUID: %v", a.RunID(), err)
	}
	if a.RunID() == b.RunID() {
		t.Error("run ids must be unique")
	}
}

func TestTracker_GenerateMetadata(t *testing.T) {
	tracker := New()
	tracker.AddAPICalls(3)
	tracker.AddAPICalls(1)
	tracker.RecordStream(StreamResult{Stream: "daily", Status: StatusSucceeded, Pages: 3, Records: 2500, Bookmark: "20240131"})
	tracker.RecordStream(StreamResult{Stream: "monthly", Status: StatusFailed, Pages: 1, Records: 10, ErrorKind: "quota_exceeded"})

	params := RunParams{ViewID: "123", StartDate: "2024-01-01", EndDate: "2024-01-31", PageSize: 1000}
	previous := &RunRef{RunID: "prev", CompletedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	meta := tracker.GenerateMetadata("1.2.3", params, previous)

	if meta.RelayVersion != "1.2.3" || meta.RunID != tracker.RunID() {
		t.Errorf("metadata header = %+v", meta)
	}
	if meta.Parameters != params {
		t.Errorf("Parameters = %+v", meta.Parameters)
	}
	if meta.Results.TotalRecords != 2510 || meta.Results.APICallCount != 4 {
		t.Errorf("Results = %+v", meta.Results)
	}
	if meta.Results.StreamsSucceeded != 1 || meta.Results.StreamsFailed != 1 {
		t.Errorf("stream counts = %+v", meta.Results)
	}
	if meta.Results.CompletedAt.Before(meta.Results.StartedAt) {
		t.Error("CompletedAt before StartedAt")
	}
	if meta.PreviousRun == nil || meta.PreviousRun.RunID != "prev" {
		t.Errorf("PreviousRun = %+v", meta.PreviousRun)
	}
	if len(meta.Streams) != 2 || meta.Streams[1].ErrorKind != "quota_exceeded" {
		t.Errorf("Streams = %+v", meta.Streams)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tracker := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.AddAPICalls(1)
			tracker.RecordStream(StreamResult{Status: StatusSucceeded, Records: 1})
		}()
	}
	wg.Wait()

	if got := len(tracker.Streams()); got != 20 {
		t.Errorf("recorded %d streams, want 20", got)
	}
}

func TestSaveAndLoadMetadata(t *testing.T) {
	dir := t.TempDir()

	older := New().GenerateMetadata("dev", RunParams{ViewID: "123"}, nil)
	older.Results.CompletedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := New().GenerateMetadata("dev", RunParams{ViewID: "123"}, older.Ref())
	newer.Results.CompletedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	other := New().GenerateMetadata("dev", RunParams{ViewID: "999"}, nil)
	other.Results.CompletedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, m := range []*RunMetadata{older, newer, other} {
		path, err := SaveMetadata(m, dir)
		if err != nil {
			t.Fatalf("SaveMetadata: %v", err)
		}
		if !strings.Contains(filepath.Base(path), m.RunID) {
			t.Errorf("file %s does not carry the run id", path)
		}
	}

	if matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp")); len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}

	latest, err := LoadLatestMetadata(dir, "123")
	if err != nil {
		t.Fatalf("LoadLatestMetadata: %v", err)
	}
	if latest == nil || latest.RunID != newer.RunID {
		t.Fatalf("latest = %+v, want run %s", latest, newer.RunID)
	}
	if latest.PreviousRun == nil || latest.PreviousRun.RunID != older.RunID {
		t.Errorf("PreviousRun = %+v", latest.PreviousRun)
	}

	none, err := LoadLatestMetadata(dir, "nope")
	if err != nil || none != nil {
		t.Errorf("LoadLatestMetadata for unknown view = %+v, %v", none, err)
	}
}

func TestLoadLatestMetadata_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "run-metadata-1-x.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	m, err := LoadLatestMetadata(dir, "123")
	if err != nil || m != nil {
		t.Errorf("LoadLatestMetadata = %+v, %v", m, err)
	}
}

func TestWriteMetadataToWriter(t *testing.T) {
	meta := New().GenerateMetadata("dev", RunParams{ViewID: "123"}, nil)

	var buf bytes.Buffer
	if err := WriteMetadataToWriter(meta, &buf); err != nil {
		t.Fatalf("WriteMetadataToWriter: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"run_id\"") {
		t.Error("output should be indented")
	}

	var decoded RunMetadata
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.RunID != meta.RunID {
		t.Errorf("RunID = %q, want %q", decoded.RunID, meta.RunID)
	}
}

func TestRef_Nil(t *testing.T) {
	var m *RunMetadata
	if m.Ref() != nil {
		t.Error("Ref of nil metadata must be nil")
	}
}
