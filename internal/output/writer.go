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

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirseerhq/analytics-relay/internal/normalize"
	"github.com/sirseerhq/analytics-relay/internal/schema"
)

// Writer is a thread-safe NDJSON Sink.
type Writer struct {
	mu        sync.Mutex
	output    io.Writer
	encoder   *json.Encoder
	records   int
	messages  int
	closeFunc func() error
	now       func() time.Time
}

// NewWriter creates a new NDJSON writer that writes to the specified output.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		output:  w,
		encoder: json.NewEncoder(w),
		now:     time.Now,
	}
}

// NewFileWriter creates a new NDJSON writer that writes to a file.
// The caller must call Close() when done to ensure the file is properly closed.
func NewFileWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w := NewWriter(file)
	w.closeFunc = file.Close
	return w, nil
}

// WriteSchema implements Sink.
func (w *Writer) WriteSchema(decl *schema.Declaration) error {
	return w.write(NewSchemaMessage(decl))
}

// WriteRecord implements Sink.
func (w *Writer) WriteRecord(stream string, rec normalize.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg := RecordMessage{
		Type:          TypeRecord,
		Stream:        stream,
		Record:        rec,
		TimeExtracted: w.now().UTC(),
	}
	if err := w.encoder.Encode(msg); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.messages++
	w.records++
	return nil
}

// WriteState implements Sink.
func (w *Writer) WriteState(value map[string]any) error {
	return w.write(StateMessage{Type: TypeState, Value: value})
}

func (w *Writer) write(msg any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.encoder.Encode(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	w.messages++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Messages returns the number of messages of any type written.
func (w *Writer) Messages() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.messages
}

// Close closes the underlying writer if it's a file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closeFunc != nil {
		err := w.closeFunc()
		w.closeFunc = nil
		return err
	}
	return nil
}
