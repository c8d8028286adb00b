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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
	"github.com/sirseerhq/analytics-relay/internal/extract"
)

// newLogger returns a text logger writing to w at the named level.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, relaierrors.ErrConfig)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newProgress returns a progress callback that rewrites a single status
// line on w, or nil when w is not a terminal. Non-interactive runs rely on
// the per-page log lines instead.
func newProgress(w io.Writer) extract.ProgressFunc {
	if !isTerminal(w) {
		return nil
	}
	startTime := time.Now()
	return func(stream string, state extract.State, finished bool) {
		if finished {
			fmt.Fprintf(w, "\r\033[K") // Clear progress line
			return
		}
		limit := "unbounded"
		if state.MaxRecords > 0 {
			limit = fmt.Sprint(state.MaxRecords)
		}
		fmt.Fprintf(w, "\r\033[K%s: page %d | %d / %s records | %s",
			stream, state.Pages, state.Total, limit, time.Since(startTime).Round(time.Second))
	}
}
