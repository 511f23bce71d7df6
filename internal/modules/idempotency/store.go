// Package idempotency remembers which order a client-supplied key created so a
// retried create-order request returns the same order. Entries expire after a
// fixed TTL; a missing entry only means the request is processed normally.
package idempotency

import (
	"context"
	"sync"
	"time"
)

// Store maps idempotency keys to order ids for a bounded time.
type Store interface {
	Remember(ctx context.Context, key string, orderID int64) error
	// Lookup reports ok=false for unknown or expired keys.
	Lookup(ctx context.Context, key string) (orderID int64, ok bool, err error)
}

type entry struct {
	orderID int64
	savedAt time.Time
}

// MemoryStore is the single-process Store. It is created at process start and
// lost on restart, which is acceptable for a best-effort dedupe.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (s *MemoryStore) Remember(_ context.Context, key string, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.entries[key] = entry{orderID: orderID, savedAt: now}
	s.sweepLocked(now)
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, false, nil
	}
	if s.expired(e, s.now()) {
		delete(s.entries, key)
		return 0, false, nil
	}
	return e.orderID, true, nil
}

// Sweep drops every expired entry and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// Len is the number of entries currently held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) expired(e entry, now time.Time) bool {
	return now.Sub(e.savedAt) > s.ttl
}
