package backtest

import (
	"math"

	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/cost"
	"github.com/newthinker/fxlab/internal/series"
)

// Run simulates one threshold strategy over s.
//
// A window spans Horizon+1 bars, so its first bar is the one whose close
// anchors the change value of its last bar. Each step evaluates the change at
// the window's last bar: an undefined value holds, a buy signal opens a
// position at the first bar's price, a sell signal closes it at the
// second-to-last bar's open. Run performs no I/O and keeps no state between
// calls; s is only read.
func Run(s *series.Series, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, core.Errorf(core.ErrInvalidInput, "series is nil")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	buyingPower := p.StartingCapital
	if p.Options.UseMargin {
		lev, err := cost.ApplyLeverage(p.StartingCapital, p.Options.Leverage)
		if err != nil {
			return nil, err
		}
		buyingPower = lev
	}

	sim := &simulation{
		s:    s,
		p:    p,
		cash: buyingPower,
	}
	if err := sim.run(); err != nil {
		return nil, err
	}
	if err := sim.finalize(); err != nil {
		return nil, err
	}

	result := &Result{
		Instrument:           s.Instrument,
		Horizon:              s.Horizon,
		Params:               p,
		StartingCapital:      p.StartingCapital,
		BuyingPower:          buyingPower,
		Borrowed:             buyingPower - p.StartingCapital,
		EndingCapital:        sim.cash,
		ROIPercent:           (sim.cash - p.StartingCapital) / p.StartingCapital * 100,
		TotalTransactionCost: sim.totalCost,
		Trades:               sim.trades,
		OpenShares:           sim.shares,
	}
	if sim.shares > 0 {
		result.OpenValue = sim.shares * s.Bars[len(s.Bars)-1].Open
	}
	result.Stats = CalculateStats(result.Trades)

	return result, nil
}

// simulation is the position state of one run
type simulation struct {
	s *series.Series
	p Params

	cash      float64
	shares    float64
	stopPrice float64
	totalCost float64
	trades    []TradeRecord
}

func (sim *simulation) run() error {
	bars := sim.s.Bars
	start, end := 0, sim.s.Horizon+1

	for end <= len(bars) {
		advance := 1
		last := end - 1

		change, ok := sim.s.ChangeAt(last)
		if ok {
			switch {
			case sim.shares == 0 && sim.cash > 0 && change >= sim.p.BuyThreshold:
				opened, err := sim.enter(start, last)
				if err != nil {
					return err
				}
				if opened && sim.p.Options.SellRule == SellImmediate {
					if err := sim.exit(last, last, false); err != nil {
						return err
					}
					advance = sim.s.Horizon
				}

			case sim.shares > 0 && sim.shouldExit(change, last):
				if err := sim.exit(last, end-2, false); err != nil {
					return err
				}
			}
		}

		start += advance
		end += advance
	}

	return nil
}

// enter opens a position priced off bars[first]. It reports false when the
// cash left after costs cannot buy a single unit.
func (sim *simulation) enter(first, trigger int) (bool, error) {
	bar := sim.s.Bars[first]
	price := bar.Open
	if sim.p.Options.EntryPriceBasis == EntryMidpoint {
		price = bar.Midpoint()
	}

	// The fee is quoted on what the cash could buy before costs and
	// charged before sizing the position.
	fee, err := sim.fee(math.Floor(sim.cash / price))
	if err != nil {
		return false, err
	}
	shares := math.Floor((sim.cash - fee) / price)
	if shares <= 0 {
		return false, nil
	}

	sim.cash = sim.cash - fee - shares*price
	sim.shares = shares
	sim.stopPrice = price * (1 - sim.p.SellThreshold)
	sim.record(core.SideBuy, trigger, price, shares, fee, false)

	return true, nil
}

func (sim *simulation) shouldExit(change float64, last int) bool {
	switch sim.p.Options.SellRule {
	case SellWindowBased:
		return change <= -sim.p.SellThreshold
	case SellPriceDrop:
		return sim.s.Bars[last].Open <= sim.stopPrice
	default:
		return false
	}
}

// exit sells the whole position at bars[priceAt].Open.
func (sim *simulation) exit(trigger, priceAt int, forced bool) error {
	price := sim.s.Bars[priceAt].Open
	shares := sim.shares

	fee, err := sim.fee(shares)
	if err != nil {
		return err
	}

	sim.cash = sim.cash + shares*price - fee
	sim.shares = 0
	sim.stopPrice = 0
	sim.record(core.SideSell, trigger, price, shares, fee, forced)

	return nil
}

// finalize force-sells a position left open when cash is effectively spent,
// so the result reflects the capital tied up in it.
func (sim *simulation) finalize() error {
	if sim.shares <= 0 || sim.cash >= sim.p.Options.LiquidationThreshold {
		return nil
	}
	last := len(sim.s.Bars) - 1
	return sim.exit(last, last, true)
}

func (sim *simulation) fee(shares float64) (float64, error) {
	if !sim.p.Options.UseTransactionCosts {
		return 0, nil
	}
	return cost.TransactionCost(shares, sim.p.Options.Spread)
}

func (sim *simulation) record(side core.Side, idx int, price, shares, fee float64, forced bool) {
	sim.totalCost += fee
	sim.trades = append(sim.trades, TradeRecord{
		Side:            side,
		BarIndex:        idx,
		Time:            sim.s.Bars[idx].Time,
		Price:           price,
		Shares:          shares,
		CashAfter:       sim.cash,
		TransactionCost: fee,
		Forced:          forced,
	})
}
