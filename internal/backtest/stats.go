package backtest

import (
	"github.com/montanaflynn/stats"

	"github.com/newthinker/fxlab/internal/core"
)

// roundTripReturns pairs each buy with the sell that closes it and returns
// the fractional change in cash over the trip, costs included.
func roundTripReturns(trades []TradeRecord) []float64 {
	var returns []float64
	var before float64
	open := false

	for _, t := range trades {
		switch t.Side {
		case core.SideBuy:
			before = t.CashAfter + t.Value() + t.TransactionCost
			open = true
		case core.SideSell:
			if !open || before <= 0 {
				continue
			}
			returns = append(returns, (t.CashAfter-before)/before)
			open = false
		}
	}

	return returns
}

// CalculateStats computes performance statistics from a trade log
func CalculateStats(trades []TradeRecord) Stats {
	returns := roundTripReturns(trades)
	if len(returns) == 0 {
		return Stats{}
	}

	var winning, losing int
	for _, r := range returns {
		if r > 0 {
			winning++
		} else {
			losing++
		}
	}

	mean, _ := stats.Mean(returns)

	return Stats{
		RoundTrips:    len(returns),
		WinningTrades: winning,
		LosingTrades:  losing,
		WinRate:       float64(winning) / float64(len(returns)) * 100,
		AvgReturn:     mean * 100,
		MaxDrawdown:   calculateMaxDrawdown(returns) * 100,
		SharpeRatio:   calculateSharpeRatio(returns),
	}
}

// calculateMaxDrawdown finds the largest peak-to-trough decline
func calculateMaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	var maxDD float64
	peak := 1.0
	cumulative := 1.0

	for _, r := range returns {
		cumulative *= (1 + r)
		if cumulative > peak {
			peak = cumulative
		}
		if dd := (peak - cumulative) / peak; dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// calculateSharpeRatio computes mean over sample deviation of per-trip
// returns. Trips have no fixed length, so there is nothing to annualize by.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	stdDev, err := stats.StandardDeviationSample(returns)
	if err != nil || stdDev == 0 {
		return 0
	}

	return mean / stdDev
}
