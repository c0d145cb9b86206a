package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps rows in a map. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Row
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Row)}
}

func (m *MemoryStore) Get(_ context.Context, table, id string) (Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[rowKey(table, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRow(row), nil
}

func (m *MemoryStore) Put(_ context.Context, table, id string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rowKey(table, id)] = copyRow(row)
	return nil
}

func (m *MemoryStore) List(_ context.Context, table string) (map[string]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := table + "/"
	out := make(map[string]Row)
	for key, row := range m.rows {
		if strings.HasPrefix(key, prefix) {
			out[strings.TrimPrefix(key, prefix)] = copyRow(row)
		}
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, rowKey(table, id))
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Shallow copy so callers cannot mutate stored rows through the map header.
func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
