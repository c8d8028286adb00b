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

package extract

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/sirseerhq/analytics-relay/internal/analytics"
	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
	"github.com/sirseerhq/analytics-relay/internal/normalize"
	"github.com/sirseerhq/analytics-relay/internal/report"
)

// DefaultPageSize is used when neither the report nor the source sets one.
const DefaultPageSize = 1000

// Status is the position of an Engine in its request cycle.
type Status int

const (
	Requesting Status = iota
	Accumulating
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Requesting:
		return "requesting"
	case Accumulating:
		return "accumulating"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// State is the pagination state of one stream.
type State struct {
	// Cursor is the page token for the next request; empty on the first.
	Cursor string
	// PreviousCursor is the token the last request was sent with.
	PreviousCursor string
	// Total counts records towards MaxRecords.
	Total int
	// MaxRecords is the ceiling for Total; zero means unbounded.
	MaxRecords int
	PageSize   int
	Pages      int
}

// Finished reports whether pagination should stop.
func (s State) Finished() bool {
	if s.Cursor == "" {
		return true
	}
	if s.MaxRecords <= 0 {
		return false
	}
	return s.Total >= s.MaxRecords
}

// Stats summarize what an Engine has produced so far.
type Stats struct {
	Pages int
	// Rows is the number of records actually yielded.
	Rows int
	// Total is the counter compared against the record ceiling.
	Total int
	// MaxReplicationValue is the largest replication key value seen.
	MaxReplicationValue string
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pages", s.Pages),
		slog.Int("rows", s.Rows),
		slog.Int("total", s.Total),
		slog.String("max_replication_value", s.MaxReplicationValue),
	)
}

// Config describes one stream extraction.
type Config struct {
	ViewID     string
	Stream     string
	Definition report.Definition
	// StartDate and EndDate bound the request, both YYYY-MM-DD.
	StartDate string
	EndDate   string
	// PageSize is the effective page size of the stream.
	PageSize int
	// MaxRecords stops pagination once Total reaches it. Zero is unbounded.
	MaxRecords int
	QuotaUser  string
	// ReplicationKey names the record column whose maximum is tracked.
	ReplicationKey string
	// CountRows advances Total by the rows actually received instead of
	// the page size.
	CountRows bool
}

// ProgressFunc is called after every page.
type ProgressFunc func(stream string, state State, finished bool)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgress registers a per-page progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// Engine paginates through one report stream.
type Engine struct {
	client     analytics.Client
	normalizer *normalize.Normalizer
	cfg        Config
	logger     *slog.Logger
	progress   ProgressFunc

	state  State
	status Status
	stats  Stats
	err    error
}

// NewEngine creates an Engine. Records may be ranged over once.
func NewEngine(client analytics.Client, normalizer *normalize.Normalizer, cfg Config, opts ...Option) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	e := &Engine{
		client:     client,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     slog.New(slog.DiscardHandler),
		state: State{
			MaxRecords: cfg.MaxRecords,
			PageSize:   cfg.PageSize,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Records yields the normalized records of every page. The first error ends
// the sequence; it is yielded with a nil record.
func (e *Engine) Records(ctx context.Context) iter.Seq2[normalize.Record, error] {
	return func(yield func(normalize.Record, error) bool) {
		for {
			e.status = Requesting
			resp, err := e.fetch(ctx)
			if err != nil {
				yield(nil, e.fail(err))
				return
			}

			e.status = Accumulating
			e.state.Pages++
			e.stats.Pages++

			var page *analytics.Report
			if len(resp.Reports) > 0 {
				page = &resp.Reports[0]
			}

			rows := 0
			for rec, err := range e.normalizer.Records(page) {
				if err != nil {
					yield(nil, e.fail(err))
					return
				}
				rows++
				e.observe(rec)
				if !yield(rec, nil) {
					return
				}
			}

			next := resp.NextPageToken()
			e.state.PreviousCursor = e.state.Cursor
			e.state.Cursor = next
			if e.cfg.CountRows {
				e.state.Total += rows
			} else {
				e.state.Total += e.state.PageSize
			}
			e.stats.Total = e.state.Total

			if next != "" && next == e.state.PreviousCursor {
				yield(nil, e.fail(fmt.Errorf("stream %q: page token %q is identical to the prior token: %w",
					e.cfg.Stream, next, relaierrors.ErrPaginationLoop)))
				return
			}

			finished := e.state.Finished()
			e.logger.Info("page fetched",
				"stream", e.cfg.Stream,
				"page", e.state.Pages,
				"rows", rows,
				"total_records", e.state.Total,
				"max_records", e.state.MaxRecords,
				"finished", finished)
			if e.progress != nil {
				e.progress(e.cfg.Stream, e.state, finished)
			}

			if finished {
				e.status = Done
				return
			}
		}
	}
}

func (e *Engine) fetch(ctx context.Context) (*analytics.BatchGetResponse, error) {
	req := analytics.NewReportRequest(
		e.cfg.ViewID,
		e.cfg.Definition,
		analytics.DateRange{StartDate: e.cfg.StartDate, EndDate: e.cfg.EndDate},
		e.state.PageSize,
		e.state.Cursor,
	)
	resp, err := e.client.BatchGet(ctx, &analytics.BatchGetRequest{
		ReportRequests: []analytics.ReportRequest{req},
	}, e.cfg.QuotaUser)
	if err != nil {
		return nil, fmt.Errorf("stream %q: page %d: %w", e.cfg.Stream, e.state.Pages+1, err)
	}
	return resp, nil
}

func (e *Engine) observe(rec normalize.Record) {
	e.stats.Rows++
	if e.cfg.ReplicationKey == "" {
		return
	}
	if v, ok := rec[e.cfg.ReplicationKey].(string); ok && v > e.stats.MaxReplicationValue {
		e.stats.MaxReplicationValue = v
	}
}

func (e *Engine) fail(err error) error {
	e.status = Failed
	e.err = err
	return err
}

// State returns the current pagination state.
func (e *Engine) State() State { return e.state }

// Status returns where the engine is in its cycle.
func (e *Engine) Status() Status { return e.status }

// Stats returns what the engine has produced so far.
func (e *Engine) Stats() Stats { return e.stats }

// Err returns the error that moved the engine to Failed, if any.
func (e *Engine) Err() error { return e.err }

// EffectiveInt returns the per-report override when set, else the fallback.
func EffectiveInt(override *int, fallback int) int {
	if override != nil {
		return *override
	}
	return fallback
}
