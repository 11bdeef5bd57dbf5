package models

import (
	id "badgemint/pkg/domain"
)

// MintRequest carries the parameters of a mint operation.
type MintRequest struct {
	Caller id.HolderID
	// Signature is accepted on the wire but not verified; the caller is
	// proven through the authentication capability instead.
	Signature     []byte
	Username      string
	Contributions uint32
	ProofData     []byte
	// Referrer is accepted but not yet recorded anywhere.
	Referrer *id.HolderID
	Nonce    uint64
}

// UpdateRequest carries the parameters of an update operation.
type UpdateRequest struct {
	Caller        id.HolderID
	TokenID       id.TokenID
	Username      string
	Contributions uint32
	ProofData     []byte
}
