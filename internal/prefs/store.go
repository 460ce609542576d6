package prefs

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsupportedScheme is returned by Open for an unknown URL scheme.
var ErrUnsupportedScheme = errors.New("prefs: unsupported scheme")

// Store is a local key-value preference store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores all given values in one batch.
	Set(values map[string]string) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(keys ...string) error

	// Close releases resources held by the store.
	Close() error
}

// Open returns the Store backend for the given URL.
//
// Supported forms:
//   - "memory:" in-process map, lost on exit
//   - "file:///path/to/prefs.json" JSON file
//   - "sqlite:///path/to/prefs.db" SQLite database
//
// A bare filesystem path is treated as a JSON file.
func Open(rawURL string) (Store, error) {
	if rawURL == "" || rawURL == "memory:" {
		return NewMemoryStore(), nil
	}
	if !strings.Contains(rawURL, "://") {
		return NewFileStore(rawURL), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("prefs: parse url: %w", err)
	}

	path := filepath.FromSlash(u.Host + u.Path)
	switch u.Scheme {
	case "file":
		return NewFileStore(path), nil
	case "sqlite", "sqlite3":
		return OpenSQLiteStore(path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
