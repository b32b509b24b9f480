// Package payout holds the odds and payout arithmetic for the mines table.
// Everything here is a pure function of grid parameters and progress
// counters; callers validate inputs before calling.
package payout

import (
	"math"

	"github.com/shopspring/decimal"
)

// Odds estimates the probability that the next reveal is safe, uniformly
// over the unrevealed cells. This is informational only: the actual outcome
// is fixed by the pre-generated grid, and because cells are drawn
// independently the realized hazard count can differ from hazardCount.
func Odds(cellCount, hazardCount, revealedCount int) float64 {
	unrevealed := cellCount - revealedCount
	if unrevealed <= 0 {
		return 0
	}
	// Prior reveals were all safe (a hazard ends the round), so the
	// expected hazards all sit among the unrevealed cells.
	p := float64(unrevealed-hazardCount) / float64(unrevealed)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Multiplier returns the payout multiplier after safeReveals safe reveals.
// Growth compounds per reveal: base * (1+risk)^safeReveals. At zero reveals
// the multiplier is exactly base.
func Multiplier(base, risk float64, safeReveals int) float64 {
	if safeReveals <= 0 {
		return base
	}
	return base * math.Pow(1+risk, float64(safeReveals))
}

// PotentialPayout is the amount credited on cash-out: stake x multiplier.
func PotentialPayout(stake decimal.Decimal, multiplier float64) decimal.Decimal {
	return stake.Mul(decimal.NewFromFloat(multiplier))
}
