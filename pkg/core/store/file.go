package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore keeps one JSON document per row under dir/<table>/<id>.json.
// Used for local runs when no database is configured.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// fileEntry wraps a row with its write timestamp on disk.
type fileEntry struct {
	ID        string    `json:"id"`
	Table     string    `json:"table"`
	Data      Row       `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = filepath.Join(".cache", "valuation")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create file store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Get(_ context.Context, table, id string) (Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, err := f.loadEntry(f.rowPath(table, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry.Data, nil
}

func (f *FileStore) Put(_ context.Context, table, id string, row Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(f.dir, sanitize(table)), 0755); err != nil {
		return fmt.Errorf("failed to create table dir: %w", err)
	}
	entry := fileEntry{ID: id, Table: table, Data: row, UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal row %s/%s: %w", table, id, err)
	}

	// Write to a temp file then rename so readers never see a partial document.
	path := f.rowPath(table, id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to save to file store: %w", err)
	}
	return os.Rename(tmp, path)
}

func (f *FileStore) List(_ context.Context, table string) (map[string]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]Row)
	files, err := os.ReadDir(filepath.Join(f.dir, sanitize(table)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, err
	}
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		entry, err := f.loadEntry(filepath.Join(f.dir, sanitize(table), file.Name()))
		if err != nil {
			continue
		}
		out[entry.ID] = entry.Data
	}
	return out, nil
}

func (f *FileStore) Delete(_ context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.rowPath(table, id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) rowPath(table, id string) string {
	return filepath.Join(f.dir, sanitize(table), sanitize(id)+".json")
}

func (f *FileStore) loadEntry(path string) (*fileEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt row file %s: %w", path, err)
	}
	return &entry, nil
}

var pathReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")

func sanitize(s string) string {
	return pathReplacer.Replace(s)
}
