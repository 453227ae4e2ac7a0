package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps hits in process memory: one ordered timestamp slice per key.
type MemoryStore struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hits: make(map[string][]time.Time),
	}
}

func (s *MemoryStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	cutoff := now.Add(-window)
	ts := s.hits[key]
	// Timestamps are appended in order; drop everything at or before cutoff.
	i := sort.Search(len(ts), func(i int) bool { return ts[i].After(cutoff) })
	ts = append(ts[:0], ts[i:]...)
	ts = append(ts, now)
	s.hits[key] = ts

	return len(ts), nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	delete(s.hits, key)
	return nil
}

// Sweep removes keys whose newest hit is older than window. Long-running
// processes call it periodically to bound memory.
func (s *MemoryStore) Sweep(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	removed := 0
	for key, ts := range s.hits {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(s.hits, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits = nil
	s.closed = true
	return nil
}
