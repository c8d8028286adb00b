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

// Package config provides configuration management for analytics-relay with
// support for multiple configuration sources and a well-defined precedence
// order.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration file
//  4. Built-in defaults
//
// The report definitions themselves only come from the configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
	"github.com/sirseerhq/analytics-relay/internal/report"
)

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise, it searches standard locations:
//   - .analytics-relay.yaml (current directory)
//   - .analytics-relay.yml (current directory)
//   - ~/.analytics-relay/config.yaml
//   - ~/.analytics-relay/config.yml
//
// Environment variables are applied after loading the config file, allowing
// runtime overrides. Path expansion (~ and environment variables) is performed
// on directory paths.
//
// Returns an error if the specified config file cannot be loaded, but will
// succeed with defaults if no config file is found in standard locations.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		home := os.Getenv("HOME")
		defaultPaths := []string{
			".analytics-relay.yaml",
			".analytics-relay.yml",
			filepath.Join(home, ".analytics-relay", "config.yaml"),
			filepath.Join(home, ".analytics-relay", "config.yml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.ExpandPaths()

	return cfg, nil
}

// ExpandPaths expands ~ and environment variables in the configured
// filesystem paths. Call it again after applying command-line overrides.
func (c *Config) ExpandPaths() {
	c.State.Dir = expandPath(c.State.Dir)
	c.Catalog.Path = expandPath(c.Catalog.Path)
}

// loadConfigFile reads and parses a YAML config file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w: %w", path, relaierrors.ErrConfig, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w: %w", path, relaierrors.ErrConfig, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Numeric variables that do not parse are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ANALYTICS_VIEW_ID"); v != "" {
		cfg.Source.ViewID = v
	}
	if v := os.Getenv("ANALYTICS_START_DATE"); v != "" {
		cfg.Source.StartDate = v
	}
	if v := os.Getenv("ANALYTICS_END_DATE"); v != "" {
		cfg.Source.EndDate = v
	}
	if v := os.Getenv("ANALYTICS_QUOTA_USER"); v != "" {
		cfg.Source.QuotaUser = v
	}
	if v := os.Getenv("ANALYTICS_API_ENDPOINT"); v != "" {
		cfg.API.Endpoint = v
	}
	if v := os.Getenv("ANALYTICS_STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}
	if v := os.Getenv("ANALYTICS_STATE_DSN"); v != "" {
		cfg.State.DSN = v
		cfg.State.Backend = BackendPostgres
	}

	if v := os.Getenv("ANALYTICS_PAGE_SIZE"); v != "" {
		size, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("ANALYTICS_PAGE_SIZE: %w: %w", relaierrors.ErrConfig, err)
		}
		cfg.Source.PageSize = size
	}
	if v := os.Getenv("ANALYTICS_MAX_RECORDS"); v != "" {
		limit, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("ANALYTICS_MAX_RECORDS: %w: %w", relaierrors.ErrConfig, err)
		}
		cfg.Source.MaxRecords = limit
	}
	if v := os.Getenv("ANALYTICS_COUNT_ACTUAL_ROWS"); v != "" {
		cfg.Source.CountActualRows = parseBool(v)
	}
	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = os.Getenv("USERPROFILE") // Windows
		}
		path = filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// parsePositiveInt parses a string to a positive integer
func parsePositiveInt(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("value must be positive, got: %d", i)
	}
	return i, nil
}

// parseBool parses various boolean representations
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}

// AccessToken returns the API access token from the configured environment
// variable.
func (c *Config) AccessToken() string {
	return strings.TrimSpace(os.Getenv(c.API.TokenEnv))
}

// S3Credentials returns the object storage keys from the configured
// environment variables.
func (c *Config) S3Credentials() (accessKey, secretKey string) {
	return os.Getenv(c.Output.S3.AccessKeyEnv), os.Getenv(c.Output.S3.SecretKeyEnv)
}

// SelectReports returns the reports with the given names in configuration
// order, or every report when names is empty. Unknown names are an error.
func (c *Config) SelectReports(names []string) ([]report.Spec, error) {
	if len(names) == 0 {
		return c.Reports, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	selected := make([]report.Spec, 0, len(names))
	for _, r := range c.Reports {
		if wanted[r.Name] {
			selected = append(selected, r)
			delete(wanted, r.Name)
		}
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for _, n := range names {
			if wanted[n] {
				missing = append(missing, n)
			}
		}
		return nil, fmt.Errorf("unknown report(s): %s: %w", strings.Join(missing, ", "), relaierrors.ErrConfig)
	}
	return selected, nil
}

// Validate checks if the configuration contains valid values. This should
// be called after loading configuration to catch invalid settings early.
// Every returned error wraps errors.ErrConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.ViewID) == "" {
		return configError("source.view_id is required")
	}
	if c.Source.StartDate == "" {
		return configError("source.start_date is required")
	}
	if !validDate(c.Source.StartDate) {
		return configError("source.start_date %q must be YYYY-MM-DD or YYYYMMDD", c.Source.StartDate)
	}
	if c.Source.EndDate != "" && !validDate(c.Source.EndDate) {
		return configError("source.end_date %q must be YYYY-MM-DD or YYYYMMDD", c.Source.EndDate)
	}
	if c.Source.PageSize <= 0 {
		return configError("source.page_size must be positive, got: %d", c.Source.PageSize)
	}
	if c.Source.MaxRecords < 0 {
		return configError("source.max_records cannot be negative, got: %d", c.Source.MaxRecords)
	}

	if c.API.Endpoint == "" {
		return configError("api.endpoint cannot be empty")
	}
	if c.API.TokenEnv == "" {
		return configError("api.token_env cannot be empty")
	}
	if c.API.Timeout < 0 {
		return configError("api.timeout cannot be negative")
	}

	if c.Retry.MaxAttempts < 1 {
		return configError("retry.max_attempts must be at least 1, got: %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialBackoff <= 0 || c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		return configError("retry backoff bounds are invalid: initial %v, max %v", c.Retry.InitialBackoff, c.Retry.MaxBackoff)
	}
	if c.Retry.Multiplier < 1 {
		return configError("retry.multiplier must be at least 1, got: %v", c.Retry.Multiplier)
	}

	switch c.State.Backend {
	case BackendFile:
		if c.State.Dir == "" {
			return configError("state.dir cannot be empty for the file backend")
		}
	case BackendPostgres:
		if c.State.DSN == "" {
			return configError("state.dsn is required for the postgres backend")
		}
	default:
		return configError("state.backend %q must be %q or %q", c.State.Backend, BackendFile, BackendPostgres)
	}

	if strings.HasPrefix(c.Output.Path, "s3://") && c.Output.S3.Endpoint == "" {
		return configError("output.s3.endpoint is required for s3:// output")
	}

	if len(c.Reports) == 0 {
		return configError("at least one report must be configured")
	}
	seen := make(map[string]bool, len(c.Reports))
	for i := range c.Reports {
		if err := c.Reports[i].Validate(); err != nil {
			return err
		}
		if seen[c.Reports[i].Name] {
			return configError("report name %q is used more than once", c.Reports[i].Name)
		}
		seen[c.Reports[i].Name] = true
	}
	return nil
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), relaierrors.ErrConfig)
}

func validDate(s string) bool {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
