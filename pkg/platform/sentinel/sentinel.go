package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so the registry service can translate them into coded domain
// errors without knowing which backend produced them.
//
// These represent factual states about stored records, not validation
// failures:
// - ErrNotFound: record does not exist in the store (or its TTL lapsed)
// - ErrConflict: record already exists where a create was attempted
// - ErrExpired: record exists but is past its lifetime
// - ErrInvalidState: record in wrong state for the requested mutation
// - ErrUnavailable: backend temporarily unreachable
//
// For validation errors (bad input, precondition violations), use
// pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
