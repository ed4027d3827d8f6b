package artifact

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps artifacts in process memory. It is the default sink
// when no persistence backend is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, runID, key string, content []byte) error {
	runID, key, err := normalize(runID, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[runID+"/"+key] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, runID, key string) ([]byte, error) {
	runID, key, err := normalize(runID, key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[runID+"/"+key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, runID string) ([]string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	prefix := runID + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, 8)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) GetURL(context.Context, string, string) (string, error) {
	// In-memory artifacts have no addressable URL.
	return "", nil
}

func normalize(runID, key string) (string, string, error) {
	runID = strings.TrimSpace(runID)
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if runID == "" {
		return "", "", fmt.Errorf("run_id is required")
	}
	if key == "" {
		return "", "", fmt.Errorf("artifact key is required")
	}
	return runID, key, nil
}
