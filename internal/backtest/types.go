package backtest

import (
	"math"
	"time"

	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/cost"
)

// DefaultLiquidationThreshold is the cash level under which an open position
// is force-sold at the end of a run.
const DefaultLiquidationThreshold = 100.0

// SellRule selects how an open position is closed
type SellRule string

const (
	// SellWindowBased sells when the window's change drops to -SellThreshold.
	SellWindowBased SellRule = "window"
	// SellPriceDrop sells when the price falls SellThreshold below entry.
	SellPriceDrop SellRule = "price_drop"
	// SellImmediate sells at the end of the entry window, every time.
	SellImmediate SellRule = "immediate"
)

// Valid reports whether r is a known rule.
func (r SellRule) Valid() bool {
	switch r {
	case SellWindowBased, SellPriceDrop, SellImmediate:
		return true
	}
	return false
}

// EntryBasis selects the price an entry fills at
type EntryBasis string

const (
	EntryOpen     EntryBasis = "open"
	EntryMidpoint EntryBasis = "midpoint"
)

// Valid reports whether b is a known basis.
func (b EntryBasis) Valid() bool {
	return b == EntryOpen || b == EntryMidpoint
}

// Options switches between the strategy variants
type Options struct {
	UseTransactionCosts  bool
	UseMargin            bool
	Leverage             int
	SellRule             SellRule
	EntryPriceBasis      EntryBasis
	Spread               float64
	LiquidationThreshold float64
}

// DefaultOptions returns the cost-aware variant.
func DefaultOptions() Options {
	return Options{
		UseTransactionCosts:  true,
		Leverage:             cost.DefaultLeverage,
		SellRule:             SellWindowBased,
		EntryPriceBasis:      EntryOpen,
		Spread:               cost.DefaultSpread,
		LiquidationThreshold: DefaultLiquidationThreshold,
	}
}

// BasicOptions returns the variant without costs or margin.
func BasicOptions() Options {
	opts := DefaultOptions()
	opts.UseTransactionCosts = false
	return opts
}

// Params holds everything a single run needs besides the series
type Params struct {
	BuyThreshold    float64
	SellThreshold   float64 // magnitude; the sell side compares against its negation
	StartingCapital float64
	Options         Options
}

// Validate checks p before any simulation work is done.
func (p Params) Validate() error {
	if !finite(p.StartingCapital) || p.StartingCapital <= 0 {
		return core.Errorf(core.ErrInvalidArgument, "starting capital must be positive, got %v", p.StartingCapital)
	}
	if !finite(p.BuyThreshold) {
		return core.Errorf(core.ErrInvalidArgument, "buy threshold must be finite, got %v", p.BuyThreshold)
	}
	if !finite(p.SellThreshold) || p.SellThreshold < 0 {
		return core.Errorf(core.ErrInvalidArgument, "sell threshold must be a non-negative magnitude, got %v", p.SellThreshold)
	}

	o := p.Options
	if !o.SellRule.Valid() {
		return core.Errorf(core.ErrInvalidArgument, "unknown sell rule %q", o.SellRule)
	}
	if !o.EntryPriceBasis.Valid() {
		return core.Errorf(core.ErrInvalidArgument, "unknown entry price basis %q", o.EntryPriceBasis)
	}
	if o.UseMargin && o.Leverage <= 0 {
		return core.Errorf(core.ErrInvalidArgument, "leverage must be positive, got %d", o.Leverage)
	}
	if o.UseTransactionCosts && (!finite(o.Spread) || o.Spread < 0) {
		return core.Errorf(core.ErrInvalidArgument, "spread must be non-negative, got %v", o.Spread)
	}
	if !finite(o.LiquidationThreshold) || o.LiquidationThreshold < 0 {
		return core.Errorf(core.ErrInvalidArgument, "liquidation threshold must be non-negative, got %v", o.LiquidationThreshold)
	}
	return nil
}

// TradeRecord is one fill in the trade log
type TradeRecord struct {
	Side            core.Side
	BarIndex        int // bar whose change value triggered the trade
	Time            time.Time
	Price           float64
	Shares          float64
	CashAfter       float64
	TransactionCost float64
	Forced          bool // end-of-run liquidation
}

// Value returns the gross notional of the fill.
func (t TradeRecord) Value() float64 {
	return t.Price * t.Shares
}

// Result holds the complete backtest output
type Result struct {
	Instrument           string
	Horizon              int
	Params               Params
	StartingCapital      float64
	BuyingPower          float64 // cash available at the start, after leverage
	Borrowed             float64 // BuyingPower - StartingCapital, zero without margin
	EndingCapital        float64 // cash at the end, borrowed amount included
	ROIPercent           float64
	TotalTransactionCost float64
	Trades               []TradeRecord
	OpenShares           float64 // position left open at the end, if any
	OpenValue            float64 // OpenShares at the last bar's open
	Stats                Stats
}

// ROITruncated returns ROIPercent truncated toward zero, the way it is shown.
func (r *Result) ROITruncated() int {
	return int(r.ROIPercent)
}

// NetCapital returns EndingCapital with the margin loan repaid.
func (r *Result) NetCapital() float64 {
	return r.EndingCapital - r.Borrowed
}

// Stats holds round-trip performance statistics
type Stats struct {
	RoundTrips    int     `json:"round_trips"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`     // Percentage of profitable round trips
	AvgReturn     float64 `json:"avg_return"`   // Mean per-trip return percentage
	MaxDrawdown   float64 `json:"max_drawdown"` // Largest peak-to-trough decline, percent
	SharpeRatio   float64 `json:"sharpe_ratio"` // Per-trip, not annualized
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
