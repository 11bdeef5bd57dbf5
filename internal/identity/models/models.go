package models

import (
	"time"

	id "badgemint/pkg/domain"
	dErrors "badgemint/pkg/domain-errors"
)

// IdentityRecord is the minted, non-transferable record bound to a token ID.
//
// Invariants:
//   - Username is non-empty
//   - Tier always equals TierFor(Contributions); mutations re-establish this
//   - MintedAt is immutable after minting
//   - Records are never deleted and never change holder
type IdentityRecord struct {
	Username      string    `json:"username"`
	Contributions uint32    `json:"contributions"`
	Tier          Tier      `json:"tier"`
	MintedAt      time.Time `json:"minted_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ProofData     []byte    `json:"proof_data,omitempty"`
}

// NewIdentityRecord builds a freshly minted record. The tier is derived, not
// accepted from the caller.
func NewIdentityRecord(username string, contributions uint32, proofData []byte, now time.Time) (IdentityRecord, error) {
	if username == "" {
		return IdentityRecord{}, dErrors.New(dErrors.CodeEmptyUsername, "username cannot be empty")
	}
	return IdentityRecord{
		Username:      username,
		Contributions: contributions,
		Tier:          TierFor(contributions),
		MintedAt:      now,
		UpdatedAt:     now,
		ProofData:     proofData,
	}, nil
}

// Apply overwrites the mutable fields of the record, re-deriving the tier and
// stamping UpdatedAt. MintedAt is left untouched.
func (r *IdentityRecord) Apply(username string, contributions uint32, proofData []byte, now time.Time) {
	r.Username = username
	r.Contributions = contributions
	r.Tier = TierFor(contributions)
	r.ProofData = proofData
	r.UpdatedAt = now
}

// HolderState is the per-holder side of the holder↔token binding.
//
// Invariant: HasIdentity is true iff TokenID is set, and TokenID never
// changes once set (no re-minting, no transfer).
type HolderState struct {
	HasIdentity bool       `json:"has_identity"`
	TokenID     id.TokenID `json:"token_id,omitempty"`
}

// Config is the single global configuration record. It exists iff the
// registry has been initialized; it is read per-operation and never cached
// across calls.
type Config struct {
	Admin         id.HolderID `json:"admin"`
	AccessControl id.HolderID `json:"access_control"`
	Treasury      id.HolderID `json:"treasury"`
	// MintFee is compared against zero at mint time. Stored as the raw
	// 128-bit two's-complement hi/lo pair the upstream ledger uses so fee
	// values round-trip unmodified.
	MintFee FeeAmount `json:"mint_fee"`
}

// Validate checks the structural invariants of a config record.
func (c Config) Validate() error {
	if c.Admin.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "admin is required")
	}
	if c.AccessControl.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "access_control is required")
	}
	if c.Treasury.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "treasury is required")
	}
	return nil
}
