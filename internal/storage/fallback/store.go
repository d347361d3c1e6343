package fallback

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/julianstephens/hearth/internal/logger"
	"github.com/julianstephens/hearth/internal/storage"
)

// Store is a string key/value map mirrored to a single JSON file. It is always
// usable: if the file cannot be read or written the store keeps working in
// memory and logs the failure. An empty path keeps everything in memory.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

var _ storage.FallbackStore = (*Store)(nil)

// Open loads path if it exists. A missing or unreadable file yields an empty store.
func Open(path string) *Store {
	s := &Store{path: path, values: make(map[string]string)}
	if path == "" {
		return s
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to read fallback store", "path", path, "error", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		logger.Warn("Fallback store is corrupt, starting empty", "path", path, "error", err)
		s.values = make(map[string]string)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s
}

// NewMemory returns a store that never touches disk.
func NewMemory() *Store {
	return Open("")
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.persistLocked()
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.persistLocked()
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	s.persistLocked()
}

// Keys returns every key in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) Path() string { return s.path }

func (s *Store) persistLocked() {
	if s.path == "" {
		return
	}
	if err := s.writeFile(); err != nil {
		logger.Error("Failed to persist fallback store", "path", s.path, "error", err)
	}
}

// writeFile replaces the file atomically via a temp file in the same directory.
func (s *Store) writeFile() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize fallback store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create fallback directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".fallback-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace fallback file: %w", err)
	}
	return nil
}
