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

package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the bookmark table used when none is configured.
const DefaultTable = "analytics_relay_bookmarks"

// PostgresStore implements Store with one row per view and stream.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	viewID string
}

// NewPostgresStore connects to dsn and returns the store together with a
// close function for cleanup. An empty table selects DefaultTable.
func NewPostgresStore(ctx context.Context, dsn, table, viewID string) (*PostgresStore, func(), error) {
	if table == "" {
		table = DefaultTable
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &PostgresStore{pool: pool, table: quoteTable(table), viewID: viewID}, closeFn, nil
}

// EnsureSchema creates the bookmark table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	view_id text NOT NULL,
	stream text NOT NULL,
	replication_key text NOT NULL DEFAULT '',
	replication_key_value text NOT NULL DEFAULT '',
	fingerprint text NOT NULL DEFAULT '',
	updated_at timestamptz NOT NULL,
	PRIMARY KEY (view_id, stream)
)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create bookmark table: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, stream string) (*StreamState, error) {
	query := fmt.Sprintf(`SELECT replication_key, replication_key_value, fingerprint, updated_at
FROM %s WHERE view_id = $1 AND stream = $2`, s.table)

	st := StreamState{Stream: stream}
	err := s.pool.QueryRow(ctx, query, s.viewID, stream).Scan(
		&st.ReplicationKey, &st.ReplicationKeyValue, &st.Fingerprint, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load bookmark for stream %q: %w", stream, err)
	}
	st.UpdatedAt = st.UpdatedAt.UTC()
	return &st, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, st *StreamState) error {
	if st == nil || st.Stream == "" {
		return fmt.Errorf("bookmark must name a stream")
	}
	updatedAt := st.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := fmt.Sprintf(`INSERT INTO %s
	(view_id, stream, replication_key, replication_key_value, fingerprint, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (view_id, stream) DO UPDATE SET
	replication_key = EXCLUDED.replication_key,
	replication_key_value = EXCLUDED.replication_key_value,
	fingerprint = EXCLUDED.fingerprint,
	updated_at = EXCLUDED.updated_at`, s.table)

	if _, err := s.pool.Exec(ctx, query, s.viewID, st.Stream, st.ReplicationKey,
		st.ReplicationKeyValue, st.Fingerprint, updatedAt.UTC()); err != nil {
		return fmt.Errorf("store bookmark for stream %q: %w", st.Stream, err)
	}
	return nil
}

// quoteTable quotes a possibly schema-qualified table name.
func quoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}
