package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// Entry is one cached asset keyed by category and duration bucket
type Entry struct {
	Key      string                 `json:"key"`
	Asset    models.BackgroundAsset `json:"asset"`
	StoredAt time.Time              `json:"stored_at"`
}

// Index records which cache keys hold an asset. Get returns nil on a miss.
type Index interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Entry, error)
}

// FileIndex is an Index persisted as a JSON file next to the cached clips
type FileIndex struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
}

// OpenFileIndex loads the index at path, creating it on first write
func OpenFileIndex(path string) (*FileIndex, error) {
	idx := &FileIndex{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache index: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cache index %s: %w", path, err)
	}
	for _, e := range entries {
		idx.entries[e.Key] = e
	}
	return idx, nil
}

// Get returns the entry for key
func (f *FileIndex) Get(ctx context.Context, key string) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Put stores entry and flushes the index
func (f *FileIndex) Put(ctx context.Context, entry Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[entry.Key] = entry
	return f.flush()
}

// Delete removes key and flushes the index
func (f *FileIndex) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.entries[key]; !ok {
		return nil
	}
	delete(f.entries, key)
	return f.flush()
}

// List returns all entries ordered by key
func (f *FileIndex) List(ctx context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sorted(), nil
}

func (f *FileIndex) sorted() []Entry {
	entries := make([]Entry, 0, len(f.entries))
	for _, e := range f.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// flush writes the index atomically. Callers hold f.mu.
func (f *FileIndex) flush() error {
	data, err := json.MarshalIndent(f.sorted(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace cache index: %w", err)
	}
	return nil
}
