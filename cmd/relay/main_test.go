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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirseerhq/analytics-relay/internal/apierror"
	"github.com/sirseerhq/analytics-relay/internal/config"
	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
	"github.com/sirseerhq/analytics-relay/internal/fieldtype"
	"github.com/sirseerhq/analytics-relay/internal/state"
	"github.com/sirseerhq/analytics-relay/test/testutil"
)

func TestMapErrorToExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"general", fmt.Errorf("boom"), 1},
		{"failed streams", fmt.Errorf("1 of 2 streams failed: %w", relaierrors.ErrStreamsFailed), 1},
		{"authentication", fmt.Errorf("stream %q: %w", "daily", apierror.New(401, "", "bad token")), 2},
		{"network", fmt.Errorf("network error: %w", relaierrors.ErrNetworkFailure), 3},
		{"config", fmt.Errorf("source.view_id is required: %w", relaierrors.ErrConfig), 4},
		{"unsupported field", &fieldtype.UnsupportedFieldError{Kind: fieldtype.Metric, Name: "ga:nope"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapErrorToExitCode(tt.err); got != tt.want {
				t.Errorf("mapErrorToExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("warn", &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "stream", "daily")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "stream=daily") {
		t.Errorf("unexpected log output: %q", out)
	}

	if _, err := newLogger("loud", &buf); mapErrorToExitCode(err) != 4 {
		t.Errorf("invalid level error = %v, want a configuration error", err)
	}
}

func TestNewProgress_NotATerminal(t *testing.T) {
	if newProgress(&bytes.Buffer{}) != nil {
		t.Error("progress must be disabled when stderr is not a terminal")
	}
}

const testConfig = `
source:
  view_id: "188392047"
  start_date: "2024-01-01"
  end_date: "2024-01-04"
  page_size: 2
api:
  endpoint: %s
  metadata_endpoint: %s
  token_env: RELAY_TEST_TOKEN
state:
  dir: %s
reports:
  - name: daily
    dimensions: [ga:date]
    metrics: [ga:sessions]
`

func setup(t *testing.T) (*testutil.ReportingServer, string, string) {
	t.Helper()
	server := testutil.NewReportingServer(t)
	server.SetColumns(testutil.SampleColumns())

	dir := t.TempDir()
	stateDir := filepath.Join(dir, "state")
	path := testutil.WriteConfig(t, dir, fmt.Sprintf(testConfig, server.Endpoint(), server.MetadataEndpoint(), stateDir))
	t.Setenv("RELAY_TEST_TOKEN", "secret")
	return server, path, stateDir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSyncCommand(t *testing.T) {
	server, path, stateDir := setup(t)
	server.Page(testutil.DailyPage("2", "20240101", "20240102")).Page(testutil.DailyPage("", "20240103"))

	stdout, stderr, err := execute(t, "sync", "--config", path, "--quota-user", "cli")
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, stderr)
	}

	msgs := testutil.ParseMessages(t, []byte(stdout))
	if len(msgs) != 5 {
		t.Fatalf("got %d messages, want schema + 3 records + state", len(msgs))
	}
	if msgs[0].Type() != "SCHEMA" || msgs[4].Type() != "STATE" {
		t.Errorf("message order = %s ... %s", msgs[0].Type(), msgs[4].Type())
	}
	if !strings.Contains(stderr, "page fetched") {
		t.Errorf("stderr should carry page diagnostics: %q", stderr)
	}

	requests := server.Requests()
	if len(requests) != 2 || requests[0].QuotaUser != "cli" {
		t.Errorf("requests = %+v", requests)
	}
	if dr := requests[0].Body.ReportRequests[0].DateRanges[0]; dr.EndDate != "2024-01-03" {
		t.Errorf("end date = %s, want the day before end_date", dr.EndDate)
	}

	testutil.AssertFileExists(t, state.FilePath(stateDir, "188392047"))
	testutil.AssertMetadataFile(t, stateDir, "188392047")
}

func TestSyncCommand_OutputFile(t *testing.T) {
	server, path, _ := setup(t)
	server.Page(testutil.DailyPage("", "20240101", "20240102"))

	outFile := filepath.Join(t.TempDir(), "records.ndjson")
	if _, stderr, err := execute(t, "sync", "--config", path, "--output", outFile); err != nil {
		t.Fatalf("sync: %v\n%s", err, stderr)
	}
	testutil.AssertNDJSONOutput(t, outFile, 2)
}

func TestSyncCommand_UnknownStream(t *testing.T) {
	_, path, _ := setup(t)

	_, _, err := execute(t, "sync", "--config", path, "--stream", "missing")
	if mapErrorToExitCode(err) != 4 {
		t.Errorf("err = %v, want a configuration error", err)
	}
}

func TestSyncCommand_MissingToken(t *testing.T) {
	_, path, _ := setup(t)
	t.Setenv("RELAY_TEST_TOKEN", "")

	_, _, err := execute(t, "sync", "--config", path)
	testutil.AssertErrorContains(t, err, "RELAY_TEST_TOKEN")
	if mapErrorToExitCode(err) != 4 {
		t.Errorf("exit code = %d, want 4", mapErrorToExitCode(err))
	}
}

func TestSyncCommand_AuthenticationFailure(t *testing.T) {
	server, path, _ := setup(t)
	server.Error(401, "authError", "Request had invalid authentication credentials.")

	_, _, err := execute(t, "sync", "--config", path)
	if got := mapErrorToExitCode(err); got != 2 {
		t.Errorf("exit code = %d, want 2 (err: %v)", got, err)
	}
}

func TestSyncCommand_FailedStream(t *testing.T) {
	server, path, _ := setup(t)
	server.Error(400, "badRequest", "Unknown dimension")

	_, _, err := execute(t, "sync", "--config", path)
	if got := mapErrorToExitCode(err); got != 1 {
		t.Errorf("exit code = %d, want 1 (err: %v)", got, err)
	}
}

func TestSchemaCommand_CachedCatalog(t *testing.T) {
	server, path, _ := setup(t)

	catalogPath := filepath.Join(t.TempDir(), "catalog.json")
	if err := fieldtype.SaveCatalog(testutil.SampleColumns().Catalog(), catalogPath); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RELAY_TEST_TOKEN", "")

	cfg, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg = append(cfg, []byte("catalog:\n  path: "+catalogPath+"\n")...)
	if err := os.WriteFile(path, cfg, 0o600); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := execute(t, "schema", "--config", path)
	if err != nil {
		t.Fatalf("schema: %v\n%s", err, stderr)
	}
	msgs := testutil.ParseMessages(t, []byte(stdout))
	if len(msgs) != 1 || msgs[0]["stream"] != "daily" {
		t.Fatalf("schema output = %s", stdout)
	}
	props := msgs[0]["schema"].(map[string]any)["properties"].(map[string]any)
	sessions := props["ga_sessions"].(map[string]any)
	if fmt.Sprint(sessions["type"]) != "[integer null]" {
		t.Errorf("ga_sessions type = %v", sessions["type"])
	}
	if len(server.Requests()) != 0 {
		t.Error("schema with a cached catalog must not call the reporting API")
	}
}

func TestCatalogCommand(t *testing.T) {
	_, path, _ := setup(t)
	out := filepath.Join(t.TempDir(), "catalog.yaml")

	_, stderr, err := execute(t, "catalog", "--config", path, "--output", out)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	testutil.AssertFileExists(t, out)
	if !strings.Contains(stderr, "Saved 4 columns") {
		t.Errorf("stderr = %q", stderr)
	}

	catalog, err := fieldtype.LoadCatalog(out)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if typ, ok := catalog.Lookup(fieldtype.Metric, "ga:bounceRate"); !ok || typ != "PERCENT" {
		t.Errorf("ga:bounceRate = %q, %v", typ, ok)
	}
}

func TestSyncOptions_FlagsOverrideConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.ViewID = "from-file"
	cfg.Source.PageSize = 500

	cmd := newSyncCommand(&globalOptions{})
	opts := &syncOptions{}
	if err := cmd.Flags().Parse([]string{"--view-id", "from-flag", "--max-records", "10"}); err != nil {
		t.Fatal(err)
	}
	opts.viewID, _ = cmd.Flags().GetString("view-id")
	opts.maxRecords, _ = cmd.Flags().GetInt("max-records")
	opts.apply(cmd, cfg)

	if cfg.Source.ViewID != "from-flag" {
		t.Errorf("ViewID = %q, want from-flag", cfg.Source.ViewID)
	}
	if cfg.Source.MaxRecords != 10 {
		t.Errorf("MaxRecords = %d, want 10", cfg.Source.MaxRecords)
	}
	if cfg.Source.PageSize != 500 {
		t.Errorf("PageSize = %d, unset flags must not override", cfg.Source.PageSize)
	}
}

func TestSyncOptions_ExpandsStateDir(t *testing.T) {
	t.Setenv("HOME", "/home/relay")

	cfg := config.DefaultConfig()
	cmd := newSyncCommand(&globalOptions{})
	if err := cmd.Flags().Parse([]string{"--state-dir", "~/relay-state"}); err != nil {
		t.Fatal(err)
	}
	opts := &syncOptions{}
	opts.stateDir, _ = cmd.Flags().GetString("state-dir")
	opts.apply(cmd, cfg)

	if cfg.State.Dir != "/home/relay/relay-state" {
		t.Errorf("State.Dir = %q, want /home/relay/relay-state", cfg.State.Dir)
	}
}
