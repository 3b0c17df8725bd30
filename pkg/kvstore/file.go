package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileStore persists keys as a single JSON file. A missing or corrupt
// file reads as empty; it never fails a Get.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

func NewFileStore(path string) *FileStore {
	s := &FileStore{path: path, data: make(map[string]string)}
	if raw, err := os.ReadFile(path); err == nil {
		var data map[string]string
		if json.Unmarshal(raw, &data) == nil {
			s.data = data
		}
	}
	return s
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value

	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}
