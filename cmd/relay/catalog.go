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

	"github.com/spf13/cobra"

	"github.com/sirseerhq/analytics-relay/internal/fieldtype"
)

func newCatalogCommand(global *globalOptions) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Download the reference catalog of dimensions and metrics",
		Long: `Download the reference catalog from the metadata endpoint and save it
for offline type inference. Point catalog.path at the saved file to skip the
download on every run. A .yaml or .yml extension writes YAML, anything else
JSON. Without --output the catalog is printed as JSON.`,
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

			catalog, err := fetchCatalog(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			if outputFile == "" {
				return writeJSONLine(cmd.OutOrStdout(), catalog)
			}
			if err := fieldtype.SaveCatalog(catalog, outputFile); err != nil {
				return fmt.Errorf("failed to save catalog: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d columns to %s\n", catalog.Len(), outputFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputFile, "output", "", "Catalog file path (default: stdout)")
	return cmd
}
