package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a [CallStore] kept in process memory, used when no database
// is configured. It retains at most capacity calls.
type MemoryStore struct {
	mu       sync.RWMutex
	calls    []Call
	ids      map[string]struct{}
	nextID   int64
	capacity int
	now      func() time.Time
}

var _ CallStore = (*MemoryStore)(nil)

// NewMemoryStore returns a store keeping the newest capacity calls. A
// non-positive capacity keeps 1000.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryStore{
		ids:      make(map[string]struct{}),
		capacity: capacity,
		now:      time.Now,
	}
}

// Insert appends c, evicting the oldest call when full.
func (s *MemoryStore) Insert(_ context.Context, c *Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[c.CallID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateCall, c.CallID)
	}

	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = s.now().UTC()

	if len(s.calls) == s.capacity {
		delete(s.ids, s.calls[0].CallID)
		s.calls = s.calls[1:]
	}
	s.calls = append(s.calls, *c)
	s.ids[c.CallID] = struct{}{}
	return nil
}

// Recent returns up to limit calls, newest first.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = normalizeLimit(limit)
	if limit > len(s.calls) {
		limit = len(s.calls)
	}
	out := make([]Call, 0, limit)
	for i := len(s.calls) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.calls[i])
	}
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }
