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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
	"github.com/sirseerhq/analytics-relay/pkg/version"
)

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(mapErrorToExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "analytics-relay",
		Short: "Extract reports from the Analytics Reporting API",
		Long: `Analytics Relay extracts dimension and metric reports from the Analytics
Reporting API v4 and writes them as schema-tagged NDJSON records. Each report
keeps a date bookmark so that later runs only request days not yet synced.`,
		Version:       version.Version,
		SilenceUsage:  true, // Don't show usage on error
		SilenceErrors: true, // We'll handle error printing ourselves
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the configuration file (default: search standard locations)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newSyncCommand(opts))
	rootCmd.AddCommand(newSchemaCommand(opts))
	rootCmd.AddCommand(newCatalogCommand(opts))

	return rootCmd
}

// mapErrorToExitCode maps internal errors to appropriate exit codes
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, relaierrors.ErrAuthentication) {
		return 2
	}

	if errors.Is(err, relaierrors.ErrNetworkFailure) {
		return 3
	}

	if errors.Is(err, relaierrors.ErrConfig) ||
		errors.Is(err, relaierrors.ErrUnsupportedField) {
		return 4
	}

	return 1 // General error, including failed streams
}
