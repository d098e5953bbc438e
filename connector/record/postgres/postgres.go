// Package postgres implements connector.RecordStore on top of a Postgres
// table, for pipelines that need transactional, queryable record storage
// rather than a pure cache.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowmesh/flowmesh/connector"
)

// pool is the subset of *pgxpool.Pool's surface Store depends on, so tests
// can substitute pgxmock's pool in place of a real connection.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Options configures a Store.
type Options struct {
	DSN       string
	TableName string // default "flowmesh_records"
}

// Store implements connector.RecordStore backed by a Postgres table with
// columns (key text primary key, value bytea, attributes jsonb).
type Store struct {
	pool  pool
	table string
	dsn   string
}

var _ connector.RecordStore = (*Store)(nil)

// NewStore returns a Store that has not yet opened a connection.
func NewStore(opts Options) *Store {
	table := opts.TableName
	if table == "" {
		table = "flowmesh_records"
	}
	return &Store{table: table, dsn: opts.DSN}
}

// Open establishes the connection pool and ensures the backing table
// exists.
func (s *Store) Open(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("connector/postgres: connect: %w", err)
	}
	s.pool = pool

	_, err = s.pool.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			key text PRIMARY KEY,
			value bytea NOT NULL,
			attributes jsonb
		)`, s.table))
	if err != nil {
		return fmt.Errorf("connector/postgres: ensure table: %w", err)
	}
	return nil
}

// Read fetches a single record by key.
func (s *Store) Read(ctx context.Context, key string) (*connector.Record, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT key, value, attributes FROM %s WHERE key = $1`, s.table), key)

	var rec connector.Record
	var attrs map[string]string
	if err := row.Scan(&rec.Key, &rec.Value, &attrs); err != nil {
		return nil, fmt.Errorf("connector/postgres: read %s: %w", key, err)
	}
	rec.Attributes = attrs
	return &rec, nil
}

// WriteBatch upserts every record inside a single transaction.
func (s *Store) WriteBatch(ctx context.Context, records []connector.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("connector/postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, attributes) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, attributes = EXCLUDED.attributes
	`, s.table)

	for _, r := range records {
		if _, err := tx.Exec(ctx, query, r.Key, r.Value, r.Attributes); err != nil {
			return fmt.Errorf("connector/postgres: upsert %s: %w", r.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("connector/postgres: commit: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
