// Package nonce implements the expiring per-holder replay counter.
//
// Both backends share the same contract: a record lives for a bounded TTL
// that is reset on every successful consumption, and an evicted or expired
// record reads as nonce 0. The reset-to-zero behavior is a deliberate trust
// tradeoff in favor of bounded storage and is exercised explicitly by tests.
package nonce

import (
	"context"
	"sync"
	"time"

	id "badgemint/pkg/domain"
	"badgemint/pkg/platform/sentinel"
)

// DefaultTTL is the lifetime of a nonce record between consumptions,
// matching the thirty-day window of the upstream ledger.
const DefaultTTL = 30 * 24 * time.Hour

// Clock is an injected time source for TTL checks.
type Clock func() time.Time

type entry struct {
	nonce     uint64
	expiresAt time.Time
}

// InMemoryStore keeps nonce records with explicit expiry timestamps checked
// on read. Expired entries behave exactly like absent ones.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[id.HolderID]entry
	ttl     time.Duration
	clock   Clock
}

// InMemoryOption configures an InMemoryStore.
type InMemoryOption func(*InMemoryStore)

// WithClock sets the time source for testability.
func WithClock(clock Clock) InMemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTTL overrides the record lifetime.
func WithTTL(ttl time.Duration) InMemoryOption {
	return func(s *InMemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[id.HolderID]entry),
		ttl:     DefaultTTL,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *InMemoryStore) Current(_ context.Context, holder id.HolderID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(holder), nil
}

func (s *InMemoryStore) Consume(_ context.Context, holder id.HolderID, supplied uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.current(holder)
	if supplied != current {
		return sentinel.ErrInvalidState
	}
	s.entries[holder] = entry{
		nonce:     current + 1,
		expiresAt: s.clock().Add(s.ttl),
	}
	return nil
}

// current assumes s.mu is held.
func (s *InMemoryStore) current(holder id.HolderID) uint64 {
	e, ok := s.entries[holder]
	if !ok {
		return 0
	}
	if !s.clock().Before(e.expiresAt) {
		// Expired records read as zero; the backend may also have evicted
		// them entirely. Same observable behavior either way.
		delete(s.entries, holder)
		return 0
	}
	return e.nonce
}
