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

// Package config types define the configuration structures used throughout
// analytics-relay. These types represent settings that can be loaded from
// YAML configuration files, environment variables, or command-line flags.
package config

import (
	"time"

	"github.com/sirseerhq/analytics-relay/internal/report"
)

// Config represents the complete configuration for analytics-relay.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	API     APIConfig     `yaml:"api"`
	Retry   RetryConfig   `yaml:"retry"`
	Catalog CatalogConfig `yaml:"catalog"`
	State   StateConfig   `yaml:"state"`
	Output  OutputConfig  `yaml:"output"`
	Reports []report.Spec `yaml:"reports"`
}

// SourceConfig identifies the reporting view and the date window to sync.
// PageSize and MaxRecords apply to every report that does not override them.
type SourceConfig struct {
	ViewID    string `yaml:"view_id"`
	StartDate string `yaml:"start_date"`
	// EndDate is exclusive; empty means today (UTC).
	EndDate    string `yaml:"end_date"`
	PageSize   int    `yaml:"page_size"`
	MaxRecords int    `yaml:"max_records"`
	QuotaUser  string `yaml:"quota_user"`
	// CountActualRows advances the record ceiling counter by rows received
	// instead of by page size.
	CountActualRows bool `yaml:"count_actual_rows"`
}

// APIConfig contains the reporting API endpoints and client settings.
type APIConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	MetadataEndpoint  string        `yaml:"metadata_endpoint"`
	TokenEnv          string        `yaml:"token_env"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// RetryConfig controls backoff for transient API failures.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier"`
}

// CatalogConfig points at a cached reference catalog. When Path is empty
// the catalog is fetched from the metadata endpoint.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// State backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// StateConfig selects where bookmarks are kept.
type StateConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
}

// OutputConfig selects the sink. An empty Path writes to standard output;
// s3://bucket/key uploads to object storage.
type OutputConfig struct {
	Path string   `yaml:"path"`
	S3   S3Config `yaml:"s3"`
}

// S3Config holds object storage settings. Credentials are read from the
// named environment variables, never from the file.
type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	Region       string `yaml:"region"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// DefaultConfig returns a Config with sensible defaults suitable for most
// use cases.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			PageSize: 1000,
		},
		API: APIConfig{
			Endpoint:          "https://analyticsreporting.googleapis.com/v4/reports:batchGet",
			MetadataEndpoint:  "https://www.googleapis.com/analytics/v3/metadata/ga/columns",
			TokenEnv:          "ANALYTICS_ACCESS_TOKEN",
			Timeout:           60 * time.Second,
			RequestsPerSecond: 10,
			Burst:             1,
		},
		Retry: RetryConfig{
			MaxAttempts:    9,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     60 * time.Second,
			Multiplier:     2,
		},
		State: StateConfig{
			Backend: BackendFile,
			Dir:     "~/.analytics-relay/state",
		},
		Output: OutputConfig{
			S3: S3Config{
				AccessKeyEnv: "AWS_ACCESS_KEY_ID",
				SecretKeyEnv: "AWS_SECRET_ACCESS_KEY",
				UseSSL:       true,
			},
		},
	}
}
