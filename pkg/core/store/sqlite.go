package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists rows as JSON documents in a single records table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite at %s: %w", path, err)
	}
	// A single connection keeps :memory: databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the records table if missing.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	const createTable = `
CREATE TABLE IF NOT EXISTS records (
  tbl TEXT NOT NULL,
  id TEXT NOT NULL,
  data TEXT NOT NULL,
  updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (tbl, id)
);
`
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, table, id string) (Row, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM records WHERE tbl = ? AND id = ?`, table, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", table, id, err)
	}
	var row Row
	if err := json.Unmarshal([]byte(data), &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s/%s: %w", table, id, err)
	}
	return row, nil
}

func (s *SQLiteStore) Put(ctx context.Context, table, id string, row Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", table, id, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO records (tbl, id, data, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (tbl, id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		table, id, string(data))
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", table, id, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, table string) (map[string]Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM records WHERE tbl = ?`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]Row)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var row Row
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s/%s: %w", table, id, err)
		}
		out[id] = row
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, table, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE tbl = ? AND id = ?`, table, id)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
