// Package sqlite implements connector.RecordStore on top of a local
// SQLite file, for single-process pipelines and tests that want record
// durability without standing up an external store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/flowmesh/flowmesh/connector"
)

// Store implements connector.RecordStore backed by a single SQLite table.
type Store struct {
	db   *sql.DB
	path string
}

var _ connector.RecordStore = (*Store)(nil)

// NewStore returns a Store that has not yet opened its database file.
// path may be a filesystem path or ":memory:".
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Open opens the database file and ensures the backing table exists.
func (s *Store) Open(ctx context.Context) error {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("connector/sqlite: open %s: %w", s.path, err)
	}
	s.db = db

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS flowmesh_records (
			key text PRIMARY KEY,
			value blob NOT NULL,
			attributes text
		)`)
	if err != nil {
		return fmt.Errorf("connector/sqlite: ensure table: %w", err)
	}
	return nil
}

// Read fetches a single record by key.
func (s *Store) Read(ctx context.Context, key string) (*connector.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value, attributes FROM flowmesh_records WHERE key = ?`, key)

	var value []byte
	var attrsJSON sql.NullString
	if err := row.Scan(&value, &attrsJSON); err != nil {
		return nil, fmt.Errorf("connector/sqlite: read %s: %w", key, err)
	}

	rec := &connector.Record{Key: key, Value: value}
	if attrsJSON.Valid && attrsJSON.String != "" {
		if err := json.Unmarshal([]byte(attrsJSON.String), &rec.Attributes); err != nil {
			return nil, fmt.Errorf("connector/sqlite: unmarshal attributes for %s: %w", key, err)
		}
	}
	return rec, nil
}

// WriteBatch upserts every record inside a single transaction.
func (s *Store) WriteBatch(ctx context.Context, records []connector.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("connector/sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO flowmesh_records (key, value, attributes) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, attributes = excluded.attributes
	`)
	if err != nil {
		return fmt.Errorf("connector/sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var attrsJSON []byte
		if len(r.Attributes) > 0 {
			attrsJSON, err = json.Marshal(r.Attributes)
			if err != nil {
				return fmt.Errorf("connector/sqlite: marshal attributes for %s: %w", r.Key, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, r.Key, r.Value, string(attrsJSON)); err != nil {
			return fmt.Errorf("connector/sqlite: upsert %s: %w", r.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("connector/sqlite: commit: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close(ctx context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
