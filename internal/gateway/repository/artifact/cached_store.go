package artifact

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore fronts a Store with an in-process LRU so repeated reads of
// the same run do not hit the backend. Writes go through and refresh the
// cached entry.
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, []byte]
}

const defaultCachedObjects = 512

func NewCachedStore(next Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = defaultCachedObjects
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{next: next, cache: c}, nil
}

func (s *CachedStore) Put(ctx context.Context, runID, key string, content []byte) error {
	if err := s.next.Put(ctx, runID, key, content); err != nil {
		return err
	}
	s.cache.Add(runID+"/"+key, append([]byte(nil), content...))
	return nil
}

func (s *CachedStore) Get(ctx context.Context, runID, key string) ([]byte, error) {
	if v, ok := s.cache.Get(runID + "/" + key); ok {
		return append([]byte(nil), v...), nil
	}
	content, err := s.next.Get(ctx, runID, key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(runID+"/"+key, append([]byte(nil), content...))
	return content, nil
}

func (s *CachedStore) GetURL(ctx context.Context, runID, key string) (string, error) {
	return s.next.GetURL(ctx, runID, key)
}

func (s *CachedStore) List(ctx context.Context, runID string) ([]string, error) {
	return s.next.List(ctx, runID)
}
