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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/analytics-relay/internal/config"
	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
	"github.com/sirseerhq/analytics-relay/internal/fieldtype"
	"github.com/sirseerhq/analytics-relay/internal/output"
	"github.com/sirseerhq/analytics-relay/internal/runner"
)

func newSchemaCommand(global *globalOptions) *cobra.Command {
	var streams []string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the schema of every configured report",
		Long: `Print one SCHEMA message per configured report, with the type of every
dimension and metric inferred from the reference catalog.

With catalog.path set no request is made. Otherwise the catalog is fetched
from the metadata endpoint, which requires an access token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global.configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(global.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			specs, err := cfg.SelectReports(streams)
			if err != nil {
				return err
			}
			if len(specs) == 0 {
				return fmt.Errorf("at least one report must be configured: %w", relaierrors.ErrConfig)
			}

			var catalog *fieldtype.Catalog
			if cfg.Catalog.Path != "" {
				catalog, err = fieldtype.LoadCatalog(cfg.Catalog.Path)
			} else {
				catalog, err = fetchCatalog(cmd.Context(), cfg, logger)
			}
			if err != nil {
				return err
			}

			decls, err := runner.Discover(specs, catalog, logger)
			if err != nil {
				return err
			}

			for _, decl := range decls {
				if err := writeJSONLine(cmd.OutOrStdout(), output.NewSchemaMessage(decl)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&streams, "stream", nil, "Report names to describe (default: all)")
	return cmd
}

// fetchCatalog downloads the reference catalog from the metadata endpoint.
func fetchCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*fieldtype.Catalog, error) {
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return runner.LoadCatalog(ctx, client, "")
}

func writeJSONLine(w io.Writer, v any) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
