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

package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultDir returns the standard state directory, ~/.analytics-relay/state.
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home directory is not accessible
		homeDir = "."
	}
	return filepath.Join(homeDir, ".analytics-relay", "state")
}

// FilePath returns the state file of a view inside dir.
// Returns: <dir>/view-<viewID>.state
func FilePath(dir, viewID string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		}
		return r
	}, viewID)
	return filepath.Join(dir, "view-"+safe+".state")
}

// FileStore implements Store on a single JSON document.
type FileStore struct {
	mu     sync.Mutex
	path   string
	viewID string
	now    func() time.Time
}

// NewFileStore creates a store backed by the file at path. The file is
// created on the first Put.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// NewViewFileStore creates a store for one view inside dir.
func NewViewFileStore(dir, viewID string) *FileStore {
	s := NewFileStore(FilePath(dir, viewID))
	s.viewID = viewID
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Get implements Store.
func (s *FileStore) Get(_ context.Context, stream string) (*StreamState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := LoadDocument(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	st, ok := doc.Streams[stream]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// Put implements Store. A missing UpdatedAt is set to the current time.
func (s *FileStore) Put(_ context.Context, st *StreamState) error {
	if st == nil || st.Stream == "" {
		return fmt.Errorf("bookmark must name a stream")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := LoadDocument(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		doc = &Document{ViewID: s.viewID}
	}
	if doc.Streams == nil {
		doc.Streams = make(map[string]StreamState)
	}

	entry := *st
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = s.now()
	}
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	doc.Streams[entry.Stream] = entry

	return SaveDocument(doc, s.path)
}

// SaveDocument atomically saves doc to disk with integrity validation.
// It uses a write-to-temp-and-rename pattern to ensure atomicity.
// The checksum is calculated and stored to detect corruption.
func SaveDocument(doc *Document, stateFile string) error {
	doc.Version = CurrentVersion

	checksum, err := calculateChecksum(doc)
	if err != nil {
		return fmt.Errorf("failed to calculate checksum: %w", err)
	}
	doc.Checksum = checksum

	stateDir := filepath.Dir(stateFile)
	if mkdirErr := os.MkdirAll(stateDir, 0o755); mkdirErr != nil {
		return fmt.Errorf("failed to create state directory: %w", mkdirErr)
	}

	tempFile := stateFile + ".tmp"

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	file, err := os.OpenFile(tempFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}
	// Sync to ensure data is flushed to disk
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempFile, stateFile); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// LoadDocument reads and validates a state document. A missing file yields
// an error wrapping os.ErrNotExist.
func LoadDocument(stateFile string) (*Document, error) {
	data, err := os.ReadFile(stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no state found at %s: %w", stateFile, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", stateFile, err)
	}

	var doc Document
	if unmarshalErr := json.Unmarshal(data, &doc); unmarshalErr != nil {
		return nil, fmt.Errorf("state file is corrupted (invalid JSON): %w", unmarshalErr)
	}

	if doc.Version != CurrentVersion {
		return nil, fmt.Errorf("state file version (%d) is incompatible with current version (%d)",
			doc.Version, CurrentVersion)
	}

	savedChecksum := doc.Checksum
	calculatedChecksum, err := calculateChecksum(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum for validation: %w", err)
	}
	if savedChecksum != calculatedChecksum {
		return nil, fmt.Errorf("state file is corrupted (checksum mismatch)")
	}

	return &doc, nil
}

// calculateChecksum computes the SHA256 hash of the document content.
// The checksum field itself is excluded from the calculation.
func calculateChecksum(doc *Document) (string, error) {
	docCopy := *doc
	docCopy.Checksum = ""

	data, err := json.Marshal(docCopy)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
