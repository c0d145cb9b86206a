package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"property_valuation/pkg/core/config"
)

type sample struct {
	Name  string    `json:"name"`
	NPV   float64   `json:"npv"`
	Flows []float64 `json:"flows"`
}

func backends(t *testing.T) map[string]RowStore {
	t.Helper()
	ctx := context.Background()

	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	sqliteStore, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]RowStore{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestRowStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			in := sample{Name: "base", NPV: 1234.5, Flows: []float64{-100, 10, 120}}
			if err := PutValue(ctx, s, TableScenarioMetrics, "run-1/0", in); err != nil {
				t.Fatalf("PutValue: %v", err)
			}
			var out sample
			if err := GetValue(ctx, s, TableScenarioMetrics, "run-1/0", &out); err != nil {
				t.Fatalf("GetValue: %v", err)
			}
			if out.Name != in.Name || out.NPV != in.NPV || len(out.Flows) != 3 || out.Flows[2] != 120 {
				t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
			}
		})
	}
}

func TestRowStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_ = s.Put(ctx, TableForecasts, "cap_rate", Row{"v": 1.0})
			_ = s.Put(ctx, TableForecasts, "cap_rate", Row{"v": 2.0})
			row, err := s.Get(ctx, TableForecasts, "cap_rate")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if row["v"] != 2.0 {
				t.Errorf("expected overwritten value 2, got %v", row["v"])
			}
		})
	}
}

func TestRowStore_MissingRow(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, TableMonteCarloRuns, "nope")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRowStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_ = s.Put(ctx, TableBatchSummaries, "a", Row{"n": 1.0})
			_ = s.Put(ctx, TableBatchSummaries, "b", Row{"n": 2.0})
			_ = s.Put(ctx, TableForecasts, "c", Row{"n": 3.0})

			rows, err := s.List(ctx, TableBatchSummaries)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(rows) != 2 {
				t.Fatalf("expected 2 rows, got %d", len(rows))
			}

			if err := s.Delete(ctx, TableBatchSummaries, "a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, TableBatchSummaries, "a"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected deleted row to be gone, got %v", err)
			}
			if err := s.Delete(ctx, TableBatchSummaries, "a"); err != nil {
				t.Errorf("deleting a missing row should be a no-op, got %v", err)
			}
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Put(ctx, "t", "1", Row{"x": 1.0})
	row, _ := s.Get(ctx, "t", "1")
	row["x"] = 99.0
	again, _ := s.Get(ctx, "t", "1")
	if again["x"] != 1.0 {
		t.Errorf("stored row mutated through returned map: %v", again["x"])
	}
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", s)
	}

	s, err = Open(ctx, config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	s.Close()

	if _, err := Open(ctx, config.StorageConfig{Driver: "mongo"}); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := Open(ctx, config.StorageConfig{Driver: "postgres"}); err == nil {
		t.Error("expected error for postgres without DSN")
	}
}
