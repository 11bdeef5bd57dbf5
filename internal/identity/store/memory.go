package store

import (
	"context"
	"sync"

	"badgemint/internal/identity/models"
	id "badgemint/pkg/domain"
	"badgemint/pkg/platform/sentinel"
)

// InMemoryRegistry is the mutex-guarded default backend. It favors clarity
// over performance and doubles as the reference semantics for the Postgres
// implementation.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	records map[id.TokenID]models.IdentityRecord
	holders map[id.HolderID]models.HolderState
	nextID  id.TokenID
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		records: make(map[id.TokenID]models.IdentityRecord),
		holders: make(map[id.HolderID]models.HolderState),
		nextID:  1,
	}
}

func (s *InMemoryRegistry) HasIdentity(_ context.Context, holder id.HolderID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holders[holder].HasIdentity, nil
}

func (s *InMemoryRegistry) HolderToken(_ context.Context, holder id.HolderID) (id.TokenID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.holders[holder]
	if !ok || !state.HasIdentity {
		return 0, sentinel.ErrNotFound
	}
	return state.TokenID, nil
}

func (s *InMemoryRegistry) TokenData(_ context.Context, tokenID id.TokenID) (models.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[tokenID]
	if !ok {
		return models.IdentityRecord{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *InMemoryRegistry) CreateIdentity(_ context.Context, holder id.HolderID, rec models.IdentityRecord) (id.TokenID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holders[holder].HasIdentity {
		return 0, sentinel.ErrConflict
	}
	tokenID := s.nextID
	s.nextID++
	s.records[tokenID] = rec
	s.holders[holder] = models.HolderState{HasIdentity: true, TokenID: tokenID}
	return tokenID, nil
}

func (s *InMemoryRegistry) UpdateIdentity(_ context.Context, tokenID id.TokenID, mutate func(*models.IdentityRecord) error) (models.IdentityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[tokenID]
	if !ok {
		return models.IdentityRecord{}, sentinel.ErrNotFound
	}
	if err := mutate(&rec); err != nil {
		return models.IdentityRecord{}, err
	}
	s.records[tokenID] = rec
	return rec, nil
}

// InMemoryConfigStore holds the single global config record.
type InMemoryConfigStore struct {
	mu  sync.RWMutex
	cfg *models.Config
}

func NewInMemoryConfigStore() *InMemoryConfigStore {
	return &InMemoryConfigStore{}
}

func (s *InMemoryConfigStore) Create(_ context.Context, cfg models.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg != nil {
		return sentinel.ErrConflict
	}
	c := cfg
	s.cfg = &c
	return nil
}

func (s *InMemoryConfigStore) Get(_ context.Context) (models.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return models.Config{}, sentinel.ErrNotFound
	}
	return *s.cfg, nil
}

func (s *InMemoryConfigStore) Update(_ context.Context, mutate func(*models.Config) error) (models.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return models.Config{}, sentinel.ErrNotFound
	}
	cfg := *s.cfg
	if err := mutate(&cfg); err != nil {
		return models.Config{}, err
	}
	s.cfg = &cfg
	return cfg, nil
}
