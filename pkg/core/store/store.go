// Package store is the persistence layer: a row store keyed by (table, id)
// whose rows are flat field maps. Backends: in-memory, JSON files, SQLite
// (modernc) and Postgres (pgx).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"property_valuation/pkg/core/config"
)

// Table names used by the core.
const (
	TableForecasts       = "forecasts"
	TableMonteCarloRuns  = "monte_carlo_runs"
	TableScenarioMetrics = "scenario_metrics"
	TableBatchSummaries  = "batch_summaries"
)

// ErrNotFound is returned by Get when no row exists for (table, id).
var ErrNotFound = errors.New("store: row not found")

// Row is a flat field map as persisted by a backend.
type Row map[string]interface{}

// RowStore is the get/put interface the core persists through.
type RowStore interface {
	Get(ctx context.Context, table, id string) (Row, error)
	Put(ctx context.Context, table, id string, row Row) error
	List(ctx context.Context, table string) (map[string]Row, error)
	Delete(ctx context.Context, table, id string) error
	Close() error
}

// Encode converts a tagged struct into a Row via its JSON field names.
func Encode(v interface{}) (Row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}
	return row, nil
}

// Decode populates v (a pointer) from a Row.
func Decode(row Row, v interface{}) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	return nil
}

// PutValue encodes v and stores it.
func PutValue(ctx context.Context, s RowStore, table, id string, v interface{}) error {
	row, err := Encode(v)
	if err != nil {
		return err
	}
	return s.Put(ctx, table, id, row)
}

// GetValue loads (table, id) into v.
func GetValue(ctx context.Context, s RowStore, table, id string, v interface{}) error {
	row, err := s.Get(ctx, table, id)
	if err != nil {
		return err
	}
	return Decode(row, v)
}

// Open builds the backend selected by the storage configuration.
func Open(ctx context.Context, cfg config.StorageConfig) (RowStore, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.FileDir)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

func rowKey(table, id string) string {
	return table + "/" + id
}
