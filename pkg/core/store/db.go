package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists rows as JSONB in the valuation_records table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool to dsn and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromPool wraps an existing pool.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the records table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS valuation_records (
			tbl TEXT NOT NULL,
			id TEXT NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tbl, id)
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create valuation_records: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, table, id string) (Row, error) {
	query := `
		SELECT data
		FROM valuation_records
		WHERE tbl = $1 AND id = $2
	`
	var dataJSON []byte
	err := s.pool.QueryRow(ctx, query, table, id).Scan(&dataJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", table, id, err)
	}
	var row Row
	if err := json.Unmarshal(dataJSON, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal db row: %w", err)
	}
	return row, nil
}

func (s *PostgresStore) Put(ctx context.Context, table, id string, row Row) error {
	dataJSON, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	query := `
		INSERT INTO valuation_records (tbl, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (tbl, id)
		DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, table, id, dataJSON); err != nil {
		return fmt.Errorf("failed to save to db: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, table string) (map[string]Row, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM valuation_records WHERE tbl = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]Row)
	for rows.Next() {
		var id string
		var dataJSON []byte
		if err := rows.Scan(&id, &dataJSON); err != nil {
			return nil, err
		}
		var row Row
		if err := json.Unmarshal(dataJSON, &row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal db row: %w", err)
		}
		out[id] = row
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, table, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM valuation_records WHERE tbl = $1 AND id = $2`, table, id)
	return err
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
