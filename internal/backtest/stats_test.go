package backtest

import (
	"math"
	"testing"

	"github.com/newthinker/fxlab/internal/core"
)

func roundTrip(cashBefore, buyPrice, sellPrice, shares float64) []TradeRecord {
	cashAfterBuy := cashBefore - buyPrice*shares
	return []TradeRecord{
		{Side: core.SideBuy, Price: buyPrice, Shares: shares, CashAfter: cashAfterBuy},
		{Side: core.SideSell, Price: sellPrice, Shares: shares, CashAfter: cashAfterBuy + sellPrice*shares},
	}
}

func TestCalculateStats_Empty(t *testing.T) {
	stats := CalculateStats([]TradeRecord{})
	if stats.RoundTrips != 0 {
		t.Error("expected 0 round trips for empty input")
	}
}

func TestCalculateStats_OpenBuyOnly(t *testing.T) {
	stats := CalculateStats([]TradeRecord{{Side: core.SideBuy, Price: 1, Shares: 10}})
	if stats.RoundTrips != 0 {
		t.Errorf("RoundTrips = %d, want 0", stats.RoundTrips)
	}
}

func TestCalculateStats_WinRate(t *testing.T) {
	var trades []TradeRecord
	trades = append(trades, roundTrip(1000, 1.0, 1.1, 1000)...) // win
	trades = append(trades, roundTrip(1000, 1.0, 1.05, 1000)...) // win
	trades = append(trades, roundTrip(1000, 1.0, 0.97, 1000)...) // loss
	trades = append(trades, roundTrip(1000, 1.0, 1.02, 1000)...) // win

	stats := CalculateStats(trades)

	if stats.RoundTrips != 4 {
		t.Errorf("RoundTrips = %d, want 4", stats.RoundTrips)
	}
	if stats.WinningTrades != 3 {
		t.Errorf("WinningTrades = %d, want 3", stats.WinningTrades)
	}
	if stats.LosingTrades != 1 {
		t.Errorf("LosingTrades = %d, want 1", stats.LosingTrades)
	}
	if stats.WinRate != 75 {
		t.Errorf("WinRate = %f, want 75", stats.WinRate)
	}
}

func TestCalculateStats_ReturnIncludesCosts(t *testing.T) {
	trades := []TradeRecord{
		{Side: core.SideBuy, Price: 1.0, Shares: 990, TransactionCost: 10, CashAfter: 0},
		{Side: core.SideSell, Price: 1.0, Shares: 990, TransactionCost: 10, CashAfter: 980},
	}

	stats := CalculateStats(trades)

	// 1000 before the trip, 980 after
	if math.Abs(stats.AvgReturn-(-2.0)) > 1e-9 {
		t.Errorf("AvgReturn = %f, want -2", stats.AvgReturn)
	}
	if stats.LosingTrades != 1 {
		t.Errorf("LosingTrades = %d, want 1", stats.LosingTrades)
	}
}

func TestCalculateMaxDrawdown(t *testing.T) {
	// Simulate: +10%, +5%, -20%, +10%
	// Peak at 1.155, trough at 0.924, DD = 20%
	returns := []float64{0.10, 0.05, -0.20, 0.10}
	dd := calculateMaxDrawdown(returns)

	if dd < 0.19 || dd > 0.21 {
		t.Errorf("MaxDrawdown = %f, want ~0.20", dd)
	}
}

func TestCalculateMaxDrawdown_FirstTripLoss(t *testing.T) {
	dd := calculateMaxDrawdown([]float64{-0.10})
	if math.Abs(dd-0.10) > 1e-12 {
		t.Errorf("MaxDrawdown = %f, want 0.10", dd)
	}
}

func TestCalculateSharpeRatio(t *testing.T) {
	if got := calculateSharpeRatio([]float64{0.05}); got != 0 {
		t.Errorf("expected 0 for a single trip, got %f", got)
	}
	if got := calculateSharpeRatio([]float64{0.5, 0.5, 0.5}); got != 0 {
		t.Errorf("expected 0 for zero deviation, got %f", got)
	}

	// mean 0.02, sample std 0.01
	got := calculateSharpeRatio([]float64{0.01, 0.02, 0.03})
	if math.Abs(got-2.0) > 1e-9 {
		t.Errorf("SharpeRatio = %f, want 2", got)
	}
}
