package collector

import (
	"context"
	"time"

	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/metrics"
)

// HistoryProvider defines the interface for candle sources
type HistoryProvider interface {
	// Name identifies the provider in the registry and in metrics
	Name() string

	// FetchHistory returns the completed bars in [start, end), oldest first
	FetchHistory(ctx context.Context, instrument string, start, end time.Time, granularity core.Granularity) ([]core.Bar, error)
}

// counted records the bars a provider returns.
type counted struct {
	HistoryProvider
	reg *metrics.Registry
}

// Counted wraps p so every successful fetch adds to the bars-ingested metric.
// A nil reg returns p unchanged.
func Counted(p HistoryProvider, reg *metrics.Registry) HistoryProvider {
	if reg == nil {
		return p
	}
	return &counted{HistoryProvider: p, reg: reg}
}

func (c *counted) FetchHistory(ctx context.Context, instrument string, start, end time.Time, granularity core.Granularity) ([]core.Bar, error) {
	bars, err := c.HistoryProvider.FetchHistory(ctx, instrument, start, end, granularity)
	if err == nil {
		c.reg.RecordBars(c.Name(), len(bars))
	}
	return bars, err
}
