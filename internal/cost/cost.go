// Package cost models broker charges and margin for simulated FX trades.
package cost

import (
	"math"

	"github.com/newthinker/fxlab/internal/core"
)

const (
	// DefaultSpread is the average ask-bid spread charged per unit.
	DefaultSpread = 0.00002

	// DefaultLeverage is the broker's buying-power multiplier (20:1).
	DefaultLeverage = 20

	// lotSize is the unit count the flat commission is quoted against.
	lotSize = 100000

	// commissionPerLot is charged for every lotSize units traded.
	commissionPerLot = 5.0
)

// TransactionCost returns the cost of trading shares units: the spread on
// every unit plus a commission of 5 per 100k units.
func TransactionCost(shares, spread float64) (float64, error) {
	if shares < 0 || math.IsNaN(shares) {
		return 0, core.Errorf(core.ErrInvalidArgument, "shares cannot be negative, got %v", shares)
	}
	if spread < 0 || math.IsNaN(spread) {
		return 0, core.Errorf(core.ErrInvalidArgument, "spread cannot be negative, got %v", spread)
	}
	return shares*spread + (shares/lotSize)*commissionPerLot, nil
}

// ApplyLeverage returns the buying power a margin deposit unlocks.
// A 1000 deposit at 20:1 buys 20000 worth of the instrument.
func ApplyLeverage(margin float64, leverage int) (float64, error) {
	if leverage <= 0 {
		return 0, core.Errorf(core.ErrInvalidArgument, "leverage must be positive, got %d", leverage)
	}
	return margin * float64(leverage), nil
}

// RequiredMargin returns the down payment needed to hold lots units priced
// at the middle of [low, high]. Advisory only; the engine never calls it.
func RequiredMargin(low, high, lots float64, leverage int) (float64, error) {
	if leverage <= 0 {
		return 0, core.Errorf(core.ErrInvalidArgument, "leverage must be positive, got %d", leverage)
	}
	if lots < 0 {
		return 0, core.Errorf(core.ErrInvalidArgument, "lots cannot be negative, got %v", lots)
	}
	mid := (low + high) / 2
	return (mid * lots) / float64(leverage), nil
}
