// Package markers keeps the small key/value flags the schedulers use to
// remember when they last ran. They live outside the wallet database so a
// logout that clears every collection does not reset them.
package markers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the marker persistence port used by the schedulers.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// FileStore persists markers as a JSON object. Every Get and Set re-reads the
// file so processes sharing a path see each other's markers; Set merges its key
// into the current contents and replaces the file atomically.
type FileStore struct {
	mu       sync.Mutex
	filePath string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create markers directory: %w", err)
	}
	s := &FileStore{filePath: path}
	if _, err := s.readLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// readLocked returns the markers on disk. A missing, empty or null file yields an empty map.
func (s *FileStore) readLocked() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read markers: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return values, nil
	}
	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode markers: %w", err)
	}
	for k, v := range decoded {
		values[k] = v
	}
	return values, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readLocked()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readLocked()
	if err != nil {
		return err
	}
	values[key] = value
	return s.persistLocked(values)
}

func (s *FileStore) persistLocked(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode markers: %w", err)
	}
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write markers: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace markers: %w", err)
	}
	return nil
}

// MemoryStore keeps markers in process memory. Used by tests and when no marker path is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
