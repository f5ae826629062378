// Package series holds the price series a backtest consumes: ordered bars
// plus one rolling-change column computed over a fixed horizon.
package series

import (
	"math"

	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/indicator"
)

// Series is an ordered run of bars for one instrument and the change column
// derived from it. It is read-only once built and safe to share between
// concurrent backtests.
type Series struct {
	Instrument  string
	Granularity core.Granularity
	Horizon     int
	Bars        []core.Bar
	Change      []float64
}

// New builds a series and computes its change column for horizon.
func New(instrument string, granularity core.Granularity, bars []core.Bar, horizon int) (*Series, error) {
	if horizon <= 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "horizon must be positive, got %d", horizon)
	}

	opens := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		opens[i] = b.Open
		closes[i] = b.Close
	}

	return &Series{
		Instrument:  instrument,
		Granularity: granularity,
		Horizon:     horizon,
		Bars:        bars,
		Change:      indicator.OpenCloseChange(opens, closes, horizon),
	}, nil
}

// WithChange builds a series around an externally computed change column.
// The column must line up with bars one to one.
func WithChange(instrument string, granularity core.Granularity, bars []core.Bar, horizon int, change []float64) (*Series, error) {
	if horizon <= 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "horizon must be positive, got %d", horizon)
	}
	if len(change) != len(bars) {
		return nil, core.Errorf(core.ErrInvalidInput, "change column has %d values for %d bars", len(change), len(bars))
	}

	return &Series{
		Instrument:  instrument,
		Granularity: granularity,
		Horizon:     horizon,
		Bars:        bars,
		Change:      change,
	}, nil
}

// Len returns the number of bars.
func (s *Series) Len() int {
	return len(s.Bars)
}

// ChangeAt returns the change value at i and whether it is comparable.
// Values before the horizon, NaN and infinities are not comparable.
func (s *Series) ChangeAt(i int) (float64, bool) {
	if i < 0 || i >= len(s.Change) {
		return 0, false
	}
	v := s.Change[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Validate checks the structural contract the engine relies on.
func (s *Series) Validate() error {
	if s.Horizon <= 0 {
		return core.Errorf(core.ErrInvalidInput, "horizon must be positive, got %d", s.Horizon)
	}
	if len(s.Change) != len(s.Bars) {
		return core.Errorf(core.ErrInvalidInput, "change column has %d values for %d bars", len(s.Change), len(s.Bars))
	}

	for i, b := range s.Bars {
		if b.Time.IsZero() {
			return core.Errorf(core.ErrInvalidInput, "bar %d has no timestamp", i)
		}
		if !validPrice(b.Open) || !validPrice(b.Close) {
			return core.Errorf(core.ErrInvalidInput, "bar %d has invalid open/close %v/%v", i, b.Open, b.Close)
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return core.Errorf(core.ErrInvalidInput, "bar %d at %s is not after %s",
				i, b.Time.Format("2006-01-02T15:04:05"), s.Bars[i-1].Time.Format("2006-01-02T15:04:05"))
		}
	}

	return nil
}

// Split halves the series into two independent series that keep the change
// values computed over the whole run.
func (s *Series) Split() (*Series, *Series) {
	mid := len(s.Bars) / 2
	return s.slice(0, mid), s.slice(mid, len(s.Bars))
}

func (s *Series) slice(from, to int) *Series {
	return &Series{
		Instrument:  s.Instrument,
		Granularity: s.Granularity,
		Horizon:     s.Horizon,
		Bars:        s.Bars[from:to:to],
		Change:      s.Change[from:to:to],
	}
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// Range builds one series per horizon in 1..maxHorizon over the same bars.
func Range(instrument string, granularity core.Granularity, bars []core.Bar, maxHorizon int) ([]*Series, error) {
	if maxHorizon <= 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "max horizon must be positive, got %d", maxHorizon)
	}

	opens := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		opens[i] = b.Open
		closes[i] = b.Close
	}

	table := indicator.ChangeTable(opens, closes, maxHorizon)
	out := make([]*Series, 0, len(table))
	for i, col := range table {
		s, err := WithChange(instrument, granularity, bars, i+1, col)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
