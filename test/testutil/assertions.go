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

package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Message is one decoded NDJSON output line.
type Message map[string]any

// Type returns the message type.
func (m Message) Type() string {
	s, _ := m["type"].(string)
	return s
}

// Record returns the record of a RECORD message.
func (m Message) Record() map[string]any {
	r, _ := m["record"].(map[string]any)
	return r
}

// ParseMessages decodes NDJSON output, failing the test on invalid lines.
func ParseMessages(t *testing.T, data []byte) []Message {
	t.Helper()

	var out []Message
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			t.Fatalf("Line %d: invalid JSON: %v", line, err)
		}
		out = append(out, msg)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Error reading output: %v", err)
	}
	return out
}

// AssertNDJSONOutput validates that a file holds valid messages with the
// expected number of records, each carrying the always-present columns.
func AssertNDJSONOutput(t *testing.T, filePath string, expectedRecords int) []Message {
	t.Helper()

	data, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to open output file: %v", err)
	}

	msgs := ParseMessages(t, data)
	count := 0
	for i, msg := range msgs {
		if msg.Type() != "RECORD" {
			continue
		}
		count++
		for _, field := range []string{"view_id", "stream", "report_start_date", "report_end_date"} {
			if _, ok := msg.Record()[field]; !ok {
				t.Errorf("Message %d: missing required field '%s'", i+1, field)
			}
		}
	}

	if count != expectedRecords {
		t.Errorf("Expected %d records, got %d", expectedRecords, count)
	}
	return msgs
}

// AssertMetadataFile validates that dir holds a run metadata file for viewID
// and returns its decoded content.
func AssertMetadataFile(t *testing.T, dir string, viewID string) map[string]any {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "run-metadata-*.json"))
	if err != nil {
		t.Fatalf("Failed to glob metadata files: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("No metadata file found")
	}

	for _, path := range matches {
		var metadata map[string]any
		ReadJSON(t, path, &metadata)

		params, _ := metadata["parameters"].(map[string]any)
		if params["view_id"] != viewID {
			continue
		}
		for _, field := range []string{"relay_version", "run_id", "streams", "results"} {
			if _, ok := metadata[field]; !ok {
				t.Errorf("Missing required metadata field: %s", field)
			}
		}
		return metadata
	}

	t.Fatalf("No metadata file for view %s", viewID)
	return nil
}

// AssertErrorContains checks if an error contains expected text
func AssertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), expected) {
		t.Errorf("Expected error to contain %q, got: %v", expected, err)
	}
}

// AssertFilePermissions checks file has expected permissions
func AssertFilePermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}

	mode := info.Mode().Perm()
	if mode != expectedMode {
		t.Errorf("Expected file mode %v, got %v", expectedMode, mode)
	}
}
