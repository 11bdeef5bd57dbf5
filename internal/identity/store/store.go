package store

import (
	"context"

	"badgemint/internal/identity/models"
	id "badgemint/pkg/domain"
)

// Stores are interface-driven so the registry service stays testable and
// backends (in-memory, Postgres, Redis) can be swapped without touching
// business code. Implementations return pkg/platform/sentinel errors; the
// service translates them into coded domain errors.

// Registry persists identity records, the holder↔token binding and the
// global token counter.
//
// CreateIdentity is the commit point of a mint: checking that the holder is
// unbound, allocating the next token ID and writing the record plus holder
// state happen as one atomic step. The counter advances only when that step
// commits, so failed attempts never burn IDs.
type Registry interface {
	HasIdentity(ctx context.Context, holder id.HolderID) (bool, error)
	HolderToken(ctx context.Context, holder id.HolderID) (id.TokenID, error)
	TokenData(ctx context.Context, tokenID id.TokenID) (models.IdentityRecord, error)
	// CreateIdentity binds a record to the holder under a fresh token ID.
	// Returns sentinel.ErrConflict if the holder already has an identity.
	CreateIdentity(ctx context.Context, holder id.HolderID, rec models.IdentityRecord) (id.TokenID, error)
	// UpdateIdentity applies mutate to the stored record under the store's
	// lock (or transaction). If mutate returns an error, nothing is written.
	// Returns sentinel.ErrNotFound if the token does not exist.
	UpdateIdentity(ctx context.Context, tokenID id.TokenID, mutate func(*models.IdentityRecord) error) (models.IdentityRecord, error)
}

// ConfigStore persists the single global configuration record.
type ConfigStore interface {
	// Create writes the initial config. Returns sentinel.ErrConflict if one
	// already exists; initialization is strictly once.
	Create(ctx context.Context, cfg models.Config) error
	// Get returns the config or sentinel.ErrNotFound when uninitialized.
	Get(ctx context.Context) (models.Config, error)
	// Update applies mutate to the stored config atomically. Returns
	// sentinel.ErrNotFound when uninitialized.
	Update(ctx context.Context, mutate func(*models.Config) error) (models.Config, error)
}

// NonceStore tracks the per-holder replay counter in expiring storage.
//
// Records carry a bounded TTL refreshed on every consumption; a record the
// backend has evicted reads as nonce 0. That reset is a documented trust
// tradeoff in favor of bounded storage, and callers must tolerate it.
type NonceStore interface {
	// Current returns the holder's nonce, 0 if absent or expired.
	Current(ctx context.Context, holder id.HolderID) (uint64, error)
	// Consume atomically verifies supplied against the current nonce,
	// persists current+1 and resets the record's TTL. Returns
	// sentinel.ErrInvalidState when supplied does not match.
	Consume(ctx context.Context, holder id.HolderID, supplied uint64) error
}
