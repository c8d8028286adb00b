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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/analytics-relay/internal/analytics"
	"github.com/sirseerhq/analytics-relay/internal/config"
	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
	"github.com/sirseerhq/analytics-relay/internal/metadata"
	"github.com/sirseerhq/analytics-relay/internal/output"
	"github.com/sirseerhq/analytics-relay/internal/runner"
	"github.com/sirseerhq/analytics-relay/internal/state"
	"github.com/sirseerhq/analytics-relay/pkg/version"
)

// syncOptions are the sync flags. Flags that were set override the
// configuration file and environment.
type syncOptions struct {
	streams    []string
	viewID     string
	startDate  string
	endDate    string
	outputPath string
	quotaUser  string
	stateDir   string
	pageSize   int
	maxRecords int
}

func newSyncCommand(global *globalOptions) *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Extract every configured report",
		Long: `Extract every configured report and write SCHEMA, RECORD and STATE
messages in NDJSON format.

Reports with a ga:date or ga:yearMonth dimension resume from their bookmark.
A report that fails is skipped and the run continues; an authentication
failure stops the run.

Authentication is required via an access token in the environment variable
named by api.token_env (default ANALYTICS_ACCESS_TOKEN).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)

			logger, err := newLogger(global.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSync(ctx, cfg, opts.streams, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
		},
	}

	cmd.Flags().StringSliceVar(&opts.streams, "stream", nil, "Report names to sync (default: all)")
	cmd.Flags().StringVar(&opts.viewID, "view-id", "", "Reporting view id (overrides source.view_id)")
	cmd.Flags().StringVar(&opts.startDate, "start-date", "", "First day to sync when no bookmark exists, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.endDate, "end-date", "", "Exclusive end day, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&opts.outputPath, "output", "", "Output file path or s3://bucket/key (default: stdout)")
	cmd.Flags().StringVar(&opts.quotaUser, "quota-user", "", "quotaUser sent with every request")
	cmd.Flags().StringVar(&opts.stateDir, "state-dir", "", "Directory for state and run metadata files")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "Rows per page for reports without their own page_size")
	cmd.Flags().IntVar(&opts.maxRecords, "max-records", 0, "Record ceiling for reports without their own max_records")

	return cmd
}

func (o *syncOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("view-id") {
		cfg.Source.ViewID = o.viewID
	}
	if flags.Changed("start-date") {
		cfg.Source.StartDate = o.startDate
	}
	if flags.Changed("end-date") {
		cfg.Source.EndDate = o.endDate
	}
	if flags.Changed("output") {
		cfg.Output.Path = o.outputPath
	}
	if flags.Changed("quota-user") {
		cfg.Source.QuotaUser = o.quotaUser
	}
	if flags.Changed("state-dir") {
		cfg.State.Dir = o.stateDir
	}
	if flags.Changed("page-size") {
		cfg.Source.PageSize = o.pageSize
	}
	if flags.Changed("max-records") {
		cfg.Source.MaxRecords = o.maxRecords
	}
	cfg.ExpandPaths()
}

// runSync executes one sync run with a validated view of cfg.
func runSync(ctx context.Context, cfg *config.Config, streams []string, stdout, stderr io.Writer, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	specs, err := cfg.SelectReports(streams)
	if err != nil {
		return err
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	catalog, err := runner.LoadCatalog(ctx, client, cfg.Catalog.Path)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	accessKey, secretKey := cfg.S3Credentials()
	sink, err := output.Open(ctx, cfg.Output.Path, stdout, output.S3Config{
		Endpoint:        cfg.Output.S3.Endpoint,
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		Region:          cfg.Output.S3.Region,
		UseSSL:          cfg.Output.S3.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}

	tracker := metadata.New()
	r := runner.New(client, store, sink, catalog, cfg.Source,
		runner.WithLogger(logger),
		runner.WithProgress(newProgress(stderr)),
		runner.WithTracker(tracker))

	result, runErr := r.Sync(ctx, specs)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close output: %w", err)
	}

	saveRunMetadata(cfg, tracker, logger)

	if runErr != nil {
		return runErr
	}
	return result.Err()
}

// newClient builds the rate-limited, retrying API client.
func newClient(cfg *config.Config, logger *slog.Logger) (analytics.Client, error) {
	token := cfg.AccessToken()
	if token == "" {
		return nil, fmt.Errorf("access token not found. Set %s: %w", cfg.API.TokenEnv, relaierrors.ErrConfig)
	}

	httpClient := analytics.NewHTTPClient(token, analytics.ClientConfig{
		Endpoint:          cfg.API.Endpoint,
		MetadataEndpoint:  cfg.API.MetadataEndpoint,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
	})
	return analytics.NewRetryClient(httpClient, &analytics.RetryConfig{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		InitialBackoff:    cfg.Retry.InitialBackoff,
		MaxBackoff:        cfg.Retry.MaxBackoff,
		BackoffMultiplier: cfg.Retry.Multiplier,
	}, logger), nil
}

// openStore returns the configured bookmark store and its cleanup func.
func openStore(ctx context.Context, cfg *config.Config) (state.Store, func(), error) {
	switch cfg.State.Backend {
	case config.BackendPostgres:
		store, closeFn, err := state.NewPostgresStore(ctx, cfg.State.DSN, cfg.State.Table, cfg.Source.ViewID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open state database: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to prepare state table: %w", err)
		}
		return store, closeFn, nil
	default:
		return state.NewViewFileStore(cfg.State.Dir, cfg.Source.ViewID), func() {}, nil
	}
}

// saveRunMetadata writes the run record next to the state files. Failures
// are logged, never fatal.
func saveRunMetadata(cfg *config.Config, tracker *metadata.Tracker, logger *slog.Logger) {
	dir := cfg.State.Dir
	if dir == "" {
		dir = state.DefaultDir()
	}

	previous, err := metadata.LoadLatestMetadata(dir, cfg.Source.ViewID)
	if err != nil {
		logger.Warn("failed to read previous run metadata", "error", err)
	}

	meta := tracker.GenerateMetadata(version.Version, metadata.RunParams{
		ViewID:     cfg.Source.ViewID,
		StartDate:  cfg.Source.StartDate,
		EndDate:    cfg.Source.EndDate,
		PageSize:   cfg.Source.PageSize,
		MaxRecords: cfg.Source.MaxRecords,
		QuotaUser:  cfg.Source.QuotaUser,
	}, previous.Ref())

	path, err := metadata.SaveMetadata(meta, dir)
	if err != nil {
		logger.Warn("failed to save run metadata", "error", err)
		return
	}
	logger.Debug("run metadata saved", "path", path, "run_id", meta.RunID)
}

// loadConfig loads the configuration file and environment overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if !errors.Is(err, relaierrors.ErrConfig) {
			return nil, fmt.Errorf("%w: %w", relaierrors.ErrConfig, err)
		}
		return nil, err
	}
	return cfg, nil
}
