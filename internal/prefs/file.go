package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ioutils "github.com/handiism/listenmoe-client/internal/io"
)

// FileStore keeps preferences in a JSON object on disk.
//
// Every Set and Delete rewrites the whole file atomically, which is fine for
// the handful of keys a client keeps.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore at path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStore) Set(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return s.save(current)
}

func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(current, k)
	}
	return s.save(current)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (map[string]string, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("prefs: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("prefs: decode %s: %w", s.path, err)
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	if err := ioutils.EnsureDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("prefs: create dir: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	// Preferences hold credentials, keep them private to the user.
	if err := ioutils.WriteFileAtomic(context.Background(), s.path, data, 0600); err != nil {
		return fmt.Errorf("prefs: write %s: %w", s.path, err)
	}
	return nil
}
