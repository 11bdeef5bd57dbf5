package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	id "badgemint/pkg/domain"
)

// Publisher is the sink interface the registry service emits into.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists events for sinks that keep history locally.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByToken(ctx context.Context, tokenID id.TokenID) ([]Event, error)
}

// StorePublisher fills in ID and timestamp and appends to a Store. Tests and
// single-node deployments use this directly; cmd/server pairs it with the
// Kafka publisher when brokers are configured.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	stamp(&event)
	return p.store.Append(ctx, event)
}

// Fanout emits to every configured publisher, stopping at the first failure.
type Fanout []Publisher

func (f Fanout) Emit(ctx context.Context, event Event) error {
	stamp(&event)
	for _, p := range f {
		if err := p.Emit(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func stamp(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
}

// InMemoryStore keeps events per token. Used by tests and as the default
// sink when no external stream is configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.TokenID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.TokenID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.TokenID] = append(s.events[event.TokenID], event)
	return nil
}

func (s *InMemoryStore) ListByToken(_ context.Context, tokenID id.TokenID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[tokenID]...), nil
}
