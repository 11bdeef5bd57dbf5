package models

import (
	dErrors "badgemint/pkg/domain-errors"
)

// Tier is the ordered reputation classification derived from a contribution
// count. It is cached on the identity record for read paths but is never
// trusted as truth: every mutation re-derives it via TierFor.
type Tier string

// Tiers in ascending reputation order.
const (
	TierNovice      Tier = "Novice"
	TierPro         Tier = "Pro"
	TierArchitect   Tier = "Architect"
	TierLegend      Tier = "Legend"
	TierSingularity Tier = "Singularity"
)

// Contribution thresholds, inclusive lower bounds.
const (
	thresholdPro         = 200
	thresholdArchitect   = 1000
	thresholdLegend      = 3000
	thresholdSingularity = 5000
)

// TierFor classifies a contribution count. Total: every uint32 maps to
// exactly one tier. Both the mint and update paths go through here; tiers are
// never computed ad hoc.
func TierFor(contributions uint32) Tier {
	switch {
	case contributions >= thresholdSingularity:
		return TierSingularity
	case contributions >= thresholdLegend:
		return TierLegend
	case contributions >= thresholdArchitect:
		return TierArchitect
	case contributions >= thresholdPro:
		return TierPro
	default:
		return TierNovice
	}
}

// tierRanks is the single source of truth for valid tiers and their order.
var tierRanks = map[Tier]uint8{
	TierNovice:      1,
	TierPro:         2,
	TierArchitect:   3,
	TierLegend:      4,
	TierSingularity: 5,
}

// ParseTier constructs a Tier from external input (store rows, request
// bodies). Returns CodeInvalidTier for anything outside the closed set.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidTier, "unknown tier")
	}
	return t, nil
}

// IsValid checks membership in the closed tier set.
func (t Tier) IsValid() bool {
	_, ok := tierRanks[t]
	return ok
}

// Rank returns the 1-based ordinal of the tier, 0 for invalid tiers.
func (t Tier) Rank() uint8 {
	return tierRanks[t]
}

// String returns the display name of the tier.
func (t Tier) String() string {
	return string(t)
}
