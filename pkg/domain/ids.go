package domain

import (
	"fmt"
	"strconv"
)

// HolderID identifies the account an identity record is bound to. It is an
// opaque external identifier (the authentication layer proves ownership of
// it); the registry never inspects its structure beyond non-emptiness.
//
// Usage: construct via ParseHolderID at trust boundaries; direct casting
// bypasses validation.
type HolderID string

const maxHolderIDLength = 128

// ParseHolderID validates and returns a HolderID from external input.
func ParseHolderID(s string) (HolderID, error) {
	if s == "" {
		return "", fmt.Errorf("holder id cannot be empty")
	}
	if len(s) > maxHolderIDLength {
		return "", fmt.Errorf("holder id must be %d characters or less", maxHolderIDLength)
	}
	return HolderID(s), nil
}

// String returns the string representation of the holder ID.
func (h HolderID) String() string {
	return string(h)
}

// IsNil reports whether the holder ID is empty.
func (h HolderID) IsNil() bool {
	return h == ""
}

// TokenID identifies a minted identity record. IDs are allocated by the
// registry in strictly increasing order starting at 1; zero is never a valid
// token ID.
type TokenID uint64

// ParseTokenID parses a decimal token ID from external input (path params).
func ParseTokenID(s string) (TokenID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token id: %q", s)
	}
	if v == 0 {
		return 0, fmt.Errorf("token id must be positive")
	}
	return TokenID(v), nil
}

// String returns the decimal representation of the token ID.
func (t TokenID) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// IsNil reports whether the token ID is unset.
func (t TokenID) IsNil() bool {
	return t == 0
}
