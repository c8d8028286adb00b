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

package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sirseerhq/analytics-relay/internal/analytics"
	"github.com/sirseerhq/analytics-relay/internal/apierror"
	"github.com/sirseerhq/analytics-relay/internal/config"
	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
	"github.com/sirseerhq/analytics-relay/internal/extract"
	"github.com/sirseerhq/analytics-relay/internal/fieldtype"
	"github.com/sirseerhq/analytics-relay/internal/metadata"
	"github.com/sirseerhq/analytics-relay/internal/normalize"
	"github.com/sirseerhq/analytics-relay/internal/output"
	"github.com/sirseerhq/analytics-relay/internal/report"
	"github.com/sirseerhq/analytics-relay/internal/schema"
	"github.com/sirseerhq/analytics-relay/internal/state"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProgress forwards per-page progress of every stream to fn.
func WithProgress(fn extract.ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithTracker records stream outcomes and API calls in t.
func WithTracker(t *metadata.Tracker) Option {
	return func(r *Runner) {
		r.tracker = t
	}
}

// WithClock overrides the clock used to resolve the default end date.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// Runner executes sync runs against one view.
type Runner struct {
	client    analytics.Client
	store     state.Store
	sink      output.Sink
	catalog   *fieldtype.Catalog
	source    config.SourceConfig
	logger    *slog.Logger
	progress  extract.ProgressFunc
	tracker   *metadata.Tracker
	inspector apierror.Inspector
	now       func() time.Time
}

// New creates a Runner. The sink is written to but not closed.
func New(client analytics.Client, store state.Store, sink output.Sink, catalog *fieldtype.Catalog, source config.SourceConfig, opts ...Option) *Runner {
	r := &Runner{
		client:    client,
		store:     store,
		sink:      sink,
		catalog:   catalog,
		source:    source,
		logger:    slog.New(slog.DiscardHandler),
		inspector: apierror.NewInspector(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result summarizes a run.
type Result struct {
	Streams []metadata.StreamResult
	Records int
	Failed  int
	// Errors holds the error of every failed stream, in run order.
	Errors []error
}

// Err returns an error wrapping ErrStreamsFailed and every stream error when
// any stream was skipped.
func (r *Result) Err() error {
	if r.Failed == 0 {
		return nil
	}
	errs := append([]error{relaierrors.ErrStreamsFailed}, r.Errors...)
	return fmt.Errorf("%d of %d streams failed: %w", r.Failed, len(r.Streams), errors.Join(errs...))
}

// Discover synthesizes the schema of every report. It needs no network
// access and fails on the first field whose type cannot be inferred.
func Discover(specs []report.Spec, catalog *fieldtype.Catalog, logger *slog.Logger) ([]*schema.Declaration, error) {
	decls := make([]*schema.Declaration, 0, len(specs))
	for _, spec := range specs {
		decl, err := schema.Synthesize(spec.Name, spec, catalog, logger)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// Sync extracts every report. Schemas are synthesized for all reports
// before the first request so that an unsupported field aborts the run
// without network traffic. The returned error is non-nil only when the run
// was aborted; skipped streams are reported in the Result.
func (r *Runner) Sync(ctx context.Context, specs []report.Spec) (*Result, error) {
	decls, err := Discover(specs, r.catalog, r.logger)
	if err != nil {
		return nil, err
	}

	endDate, err := extract.ResolveEndDate(r.source.EndDate, r.now())
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for i, spec := range specs {
		before, counted := r.calls()
		sr, err := r.syncStream(ctx, spec, decls[i], endDate)
		result.Streams = append(result.Streams, sr)
		result.Records += sr.Records
		if r.tracker != nil {
			r.tracker.RecordStream(sr)
			calls := sr.Pages
			if after, ok := r.calls(); ok && counted {
				calls = after - before
			}
			r.tracker.AddAPICalls(calls)
		}
		if err == nil {
			continue
		}

		result.Failed++
		result.Errors = append(result.Errors, err)
		kind := r.inspector.KindOf(err)
		if errors.Is(err, context.Canceled) || kind.Scope() == apierror.ScopeRun {
			return result, err
		}
		r.logger.Error("stream failed, skipping",
			"stream", spec.Name,
			"kind", kind.String(),
			"retryable", kind.Retryable(),
			"error", err)
	}

	r.logger.Info("sync complete",
		"streams", len(result.Streams),
		"failed", result.Failed,
		"records", result.Records)
	return result, nil
}

// calls reports the client's request count when it keeps one. Without a
// counter, API calls fall back to the number of pages served.
func (r *Runner) calls() (int, bool) {
	if c, ok := r.client.(analytics.CallCounter); ok {
		return c.Calls(), true
	}
	return 0, false
}

func (r *Runner) syncStream(ctx context.Context, spec report.Spec, decl *schema.Declaration, endDate string) (metadata.StreamResult, error) {
	started := time.Now()
	sr := metadata.StreamResult{Stream: spec.Name, Status: metadata.StatusFailed}
	fail := func(err error) (metadata.StreamResult, error) {
		sr.ErrorKind = r.inspector.KindOf(err).String()
		sr.Error = err.Error()
		sr.Duration = time.Since(started).String()
		return sr, err
	}

	if err := r.sink.WriteSchema(decl); err != nil {
		return fail(fmt.Errorf("stream %q: failed to write schema: %w", spec.Name, err))
	}

	def := report.Build(spec)
	fingerprint, err := report.Fingerprint(def)
	if err != nil {
		return fail(fmt.Errorf("stream %q: %w", spec.Name, err))
	}

	startDate, err := r.startDate(ctx, spec.Name, decl, fingerprint)
	if err != nil {
		return fail(err)
	}
	configuredStart, err := extract.ResolveStartDate("", r.source.StartDate)
	if err != nil {
		return fail(err)
	}

	normalizer := normalize.New(normalize.Params{
		ViewID:    r.source.ViewID,
		Stream:    spec.Name,
		StartDate: configuredStart,
		EndDate:   endDate,
	}, r.catalog)

	engine := extract.NewEngine(r.client, normalizer, extract.Config{
		ViewID:         r.source.ViewID,
		Stream:         spec.Name,
		Definition:     def,
		StartDate:      startDate,
		EndDate:        endDate,
		PageSize:       extract.EffectiveInt(spec.PageSize, r.source.PageSize),
		MaxRecords:     extract.EffectiveInt(spec.MaxRecords, r.source.MaxRecords),
		QuotaUser:      r.source.QuotaUser,
		ReplicationKey: decl.ReplicationKey,
		CountRows:      r.source.CountActualRows,
	}, extract.WithLogger(r.logger), extract.WithProgress(r.progress))

	r.logger.Info("syncing stream",
		"stream", spec.Name,
		"start_date", startDate,
		"end_date", endDate)

	var runErr error
	for rec, err := range engine.Records(ctx) {
		if err != nil {
			runErr = err
			break
		}
		if err := r.sink.WriteRecord(spec.Name, rec); err != nil {
			runErr = fmt.Errorf("stream %q: failed to write record: %w", spec.Name, err)
			break
		}
	}

	stats := engine.Stats()
	sr.Pages = stats.Pages
	sr.Records = stats.Rows
	if runErr != nil {
		return fail(runErr)
	}

	if decl.IncrementalSupported && stats.MaxReplicationValue != "" {
		if err := r.advance(ctx, decl, fingerprint, stats.MaxReplicationValue); err != nil {
			return fail(err)
		}
		sr.Bookmark = stats.MaxReplicationValue
	}

	r.logger.Info("stream complete", "stream", spec.Name, "stats", stats)
	sr.Status = metadata.StatusSucceeded
	sr.Duration = time.Since(started).String()
	return sr, nil
}

// startDate returns the request start date: the bookmark when the stream
// has one, the configured start date otherwise.
func (r *Runner) startDate(ctx context.Context, stream string, decl *schema.Declaration, fingerprint string) (string, error) {
	var bookmark string
	if decl.IncrementalSupported {
		st, err := r.store.Get(ctx, stream)
		if err != nil {
			return "", fmt.Errorf("stream %q: failed to read bookmark: %w", stream, err)
		}
		if st != nil {
			bookmark = st.ReplicationKeyValue
			if st.Fingerprint != "" && st.Fingerprint != fingerprint {
				r.logger.Warn("report definition changed since the bookmark was written",
					"stream", stream,
					"bookmark", bookmark)
			}
		}
	}
	return extract.ResolveStartDate(bookmark, r.source.StartDate)
}

func (r *Runner) advance(ctx context.Context, decl *schema.Declaration, fingerprint, value string) error {
	st := &state.StreamState{
		Stream:              decl.Stream,
		ReplicationKey:      decl.ReplicationKey,
		ReplicationKeyValue: value,
		Fingerprint:         fingerprint,
		UpdatedAt:           r.now().UTC(),
	}
	if err := r.store.Put(ctx, st); err != nil {
		return fmt.Errorf("stream %q: failed to save bookmark: %w", decl.Stream, err)
	}

	msg := map[string]any{
		"bookmarks": map[string]any{
			decl.Stream: map[string]any{
				"replication_key":       decl.ReplicationKey,
				"replication_key_value": value,
			},
		},
	}
	if err := r.sink.WriteState(msg); err != nil {
		return fmt.Errorf("stream %q: failed to write state: %w", decl.Stream, err)
	}
	return nil
}

// LoadCatalog reads the cached catalog at path, or fetches it from the
// metadata endpoint when path is empty.
func LoadCatalog(ctx context.Context, client analytics.Client, path string) (*fieldtype.Catalog, error) {
	if path != "" {
		return fieldtype.LoadCatalog(path)
	}
	resp, err := client.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reference catalog: %w", err)
	}
	return resp.Catalog(), nil
}
