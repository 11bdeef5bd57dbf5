package models

import (
	"fmt"
	"math/big"

	dErrors "badgemint/pkg/domain-errors"
)

// FeeAmount is a signed 128-bit fee value, matching the ledger the registry
// was designed against. The core only ever compares it to zero; arithmetic is
// deliberately not exposed.
//
// JSON representation is a decimal string so the full range survives
// encoders that truncate large numbers to float64.
type FeeAmount struct {
	hi int64
	lo uint64
}

// FeeFromInt64 builds a fee from a host integer.
func FeeFromInt64(v int64) FeeAmount {
	if v < 0 {
		// Sign-extend into the high word.
		return FeeAmount{hi: -1, lo: uint64(v)}
	}
	return FeeAmount{hi: 0, lo: uint64(v)}
}

// ParseFee parses a decimal string into a fee, rejecting values outside the
// signed 128-bit range.
func ParseFee(s string) (FeeAmount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return FeeAmount{}, dErrors.New(dErrors.CodeBadRequest, "mint_fee must be a decimal integer")
	}
	if v.BitLen() > 127 {
		return FeeAmount{}, dErrors.New(dErrors.CodeBadRequest, "mint_fee out of 128-bit range")
	}
	return feeFromBig(v), nil
}

// Sign returns -1, 0 or +1. Minting is blocked whenever Sign() > 0.
func (f FeeAmount) Sign() int {
	if f.hi < 0 {
		return -1
	}
	if f.hi == 0 && f.lo == 0 {
		return 0
	}
	return 1
}

// IsZero reports whether the fee is exactly zero.
func (f FeeAmount) IsZero() bool {
	return f.hi == 0 && f.lo == 0
}

// String renders the fee as a decimal integer.
func (f FeeAmount) String() string {
	return f.big().String()
}

// MarshalJSON encodes the fee as a decimal string.
func (f FeeAmount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare integer literal.
func (f *FeeAmount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseFee(s)
	if err != nil {
		return fmt.Errorf("unmarshal fee: %w", err)
	}
	*f = parsed
	return nil
}

func (f FeeAmount) big() *big.Int {
	v := new(big.Int).SetInt64(f.hi)
	v.Lsh(v, 64)
	return v.Add(v, new(big.Int).SetUint64(f.lo))
}

func feeFromBig(v *big.Int) FeeAmount {
	// Two's-complement split into hi/lo words.
	mask := new(big.Int).SetUint64(^uint64(0))
	lo := new(big.Int).And(v, mask)
	hi := new(big.Int).Rsh(v, 64)
	return FeeAmount{hi: hi.Int64(), lo: lo.Uint64()}
}
