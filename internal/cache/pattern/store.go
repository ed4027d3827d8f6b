// Package pattern caches generated artifacts keyed by feature fingerprints,
// grouped into per-category stores (analysis, template, dialog, clientlib,
// responsive patterns, interactive patterns, ...).
package pattern

import (
	"container/list"
	"sort"
	"sync"
	"time"

	"compforge/internal/estimator"
	"compforge/internal/fingerprint"
)

// DefaultTTL applies to categories without an explicit TTL.
const DefaultTTL = 24 * time.Hour

type entry struct {
	key       string
	payload   map[string]any
	createdAt time.Time
}

type categoryStore struct {
	ll    *list.List
	items map[string]*list.Element
	ttl   time.Duration
}

// Stats is an advisory snapshot of cache effectiveness. Counters never
// affect lookup results.
type Stats struct {
	Hits      int64          `json:"hits"`
	Misses    int64          `json:"misses"`
	HitRate   float64        `json:"hit_rate"`
	ByKeyUses map[string]int `json:"key_uses"`
	TopKeys   []string       `json:"top_keys"`
}

// Store is a threadsafe fingerprint cache with per-category TTL and lazy
// expiry on lookup.
type Store struct {
	mu         sync.Mutex
	categories map[string]*categoryStore
	ttls       map[string]time.Duration
	defaultTTL time.Duration
	maxEntries int

	hits   int64
	misses int64
	uses   map[string]int

	now func() time.Time
}

// Option tunes a Store at construction.
type Option func(*Store)

// WithTTL sets the TTL for one category.
func WithTTL(category string, ttl time.Duration) Option {
	return func(s *Store) { s.ttls[category] = ttl }
}

// WithDefaultTTL changes the TTL for categories without an explicit one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithMaxEntries caps each category's entry count; oldest entries are
// evicted first.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock replaces the time source. Tests use this to advance past TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty cache.
func NewStore(opts ...Option) *Store {
	s := &Store{
		categories: make(map[string]*categoryStore),
		ttls:       make(map[string]time.Duration),
		defaultTTL: DefaultTTL,
		maxEntries: 1024,
		uses:       make(map[string]int),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached payload for the feature set under the category, or
// nil when absent. An expired entry is deleted and treated as a miss.
func (s *Store) Get(category string, features estimator.FeatureSet) (map[string]any, bool) {
	if s == nil {
		return nil, false
	}
	key := fingerprint.Hash(features)

	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.categories[category]
	if !ok {
		s.misses++
		return nil, false
	}
	ele, ok := cs.items[key]
	if !ok {
		s.misses++
		return nil, false
	}
	ent := ele.Value.(*entry)
	if s.now().Sub(ent.createdAt) > cs.ttl {
		cs.removeElement(ele)
		s.misses++
		return nil, false
	}
	cs.ll.MoveToFront(ele)
	s.hits++
	s.uses[category+":"+key]++
	return ent.payload, true
}

// Put stores the payload for the feature set under the category. A
// concurrent Put for the same key is tolerated; last write wins.
func (s *Store) Put(category string, features estimator.FeatureSet, payload map[string]any) {
	if s == nil || payload == nil {
		return
	}
	key := fingerprint.Hash(features)

	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.categories[category]
	if !ok {
		cs = &categoryStore{
			ll:    list.New(),
			items: make(map[string]*list.Element),
			ttl:   s.ttlFor(category),
		}
		s.categories[category] = cs
	}

	if ele, ok := cs.items[key]; ok {
		ent := ele.Value.(*entry)
		ent.payload = payload
		ent.createdAt = s.now()
		cs.ll.MoveToFront(ele)
		return
	}
	ele := cs.ll.PushFront(&entry{key: key, payload: payload, createdAt: s.now()})
	cs.items[key] = ele
	for cs.ll.Len() > s.maxEntries {
		cs.removeElement(cs.ll.Back())
	}
}

// ClearExpired removes every expired entry across all categories and
// returns how many were dropped. Expiry is otherwise lazy on Get.
func (s *Store) ClearExpired() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	now := s.now()
	for _, cs := range s.categories {
		var expired []*list.Element
		for ele := cs.ll.Back(); ele != nil; ele = ele.Prev() {
			if now.Sub(ele.Value.(*entry).createdAt) > cs.ttl {
				expired = append(expired, ele)
			}
		}
		for _, ele := range expired {
			cs.removeElement(ele)
			cleared++
		}
	}
	return cleared
}

// Stats returns an advisory usage snapshot.
func (s *Store) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		ByKeyUses: make(map[string]int, len(s.uses)),
	}
	total := s.hits + s.misses
	if total > 0 {
		out.HitRate = float64(s.hits) / float64(total)
	}
	keys := make([]string, 0, len(s.uses))
	for k, n := range s.uses {
		out.ByKeyUses[k] = n
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if s.uses[keys[i]] != s.uses[keys[j]] {
			return s.uses[keys[i]] > s.uses[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > 10 {
		keys = keys[:10]
	}
	out.TopKeys = keys
	return out
}

func (s *Store) ttlFor(category string) time.Duration {
	if ttl, ok := s.ttls[category]; ok && ttl > 0 {
		return ttl
	}
	return s.defaultTTL
}

func (cs *categoryStore) removeElement(ele *list.Element) {
	if ele == nil {
		return
	}
	cs.ll.Remove(ele)
	delete(cs.items, ele.Value.(*entry).key)
}
