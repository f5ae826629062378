package backtest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/metrics"
	"github.com/newthinker/fxlab/internal/series"
)

// HistoryProvider defines the interface for fetching historical bars
type HistoryProvider interface {
	FetchHistory(ctx context.Context, instrument string, start, end time.Time, granularity core.Granularity) ([]core.Bar, error)
}

// Request describes one backtest against fetched history
type Request struct {
	Instrument  string
	Granularity core.Granularity
	Start       time.Time
	End         time.Time
	Horizon     int
	Params      Params
}

// SweepRequest describes a parameter sweep against fetched history.
// Every horizon in 1..MaxHorizon is swept when MaxHorizon is set,
// otherwise only Horizon.
type SweepRequest struct {
	Request
	MaxHorizon int
	Grid       Grid
	Workers    int
}

// Backtester runs backtests against historical data
type Backtester struct {
	provider HistoryProvider
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// Option configures a Backtester
type Option func(*Backtester)

// WithMetrics records run metrics in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(b *Backtester) { b.metrics = reg }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backtester) { b.logger = logger }
}

// New creates a new Backtester with the given history provider
func New(provider HistoryProvider, opts ...Option) *Backtester {
	b := &Backtester{
		provider: provider,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load fetches history for req and builds its series.
func (b *Backtester) Load(ctx context.Context, req Request) (*series.Series, error) {
	bars, err := b.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return series.New(req.Instrument, req.Granularity, bars, req.Horizon)
}

// Run fetches history and executes a single backtest
func (b *Backtester) Run(ctx context.Context, req Request) (*Result, error) {
	s, err := b.Load(ctx, req)
	if err != nil {
		return nil, err
	}
	return b.RunSeries(s, req.Params)
}

// RunSeries executes a single backtest over an already built series.
func (b *Backtester) RunSeries(s *series.Series, p Params) (*Result, error) {
	start := time.Now()
	result, err := Run(s, p)
	b.observe(p, result, err, time.Since(start))
	if err != nil {
		b.logger.Warn("backtest rejected", zap.String("code", core.CodeOf(err)), zap.Error(err))
		return nil, err
	}

	b.logger.Info("backtest complete",
		zap.String("instrument", result.Instrument),
		zap.Int("horizon", result.Horizon),
		zap.String("sell_rule", string(p.Options.SellRule)),
		zap.Float64("buy_threshold", p.BuyThreshold),
		zap.Float64("sell_threshold", p.SellThreshold),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("ending_capital", result.EndingCapital),
		zap.Float64("roi_percent", result.ROIPercent),
		zap.Float64("transaction_cost", result.TotalTransactionCost),
	)
	return result, nil
}

// Sweep fetches history once and sweeps the grid over it.
func (b *Backtester) Sweep(ctx context.Context, req SweepRequest) ([]SweepResult, error) {
	bars, err := b.fetch(ctx, req.Request)
	if err != nil {
		return nil, err
	}

	var all []*series.Series
	if req.MaxHorizon > 0 {
		all, err = series.Range(req.Instrument, req.Granularity, bars, req.MaxHorizon)
	} else {
		var s *series.Series
		s, err = series.New(req.Instrument, req.Granularity, bars, req.Horizon)
		all = []*series.Series{s}
	}
	if err != nil {
		return nil, err
	}

	return b.SweepSeries(ctx, all, req.Grid, req.Params, req.Workers)
}

// SweepSeries sweeps the grid over already built series.
func (b *Backtester) SweepSeries(ctx context.Context, all []*series.Series, grid Grid, base Params, workers int) ([]SweepResult, error) {
	start := time.Now()
	results, err := Sweep(ctx, all, grid, base, workers)
	if err != nil {
		return nil, err
	}

	if b.metrics != nil {
		for _, r := range results {
			b.metrics.RecordSweepPoint(statusOf(r.Err))
			b.recordTrades(r.Result)
		}
	}

	fields := []zap.Field{
		zap.Int("points", len(results)),
		zap.Int("failures", Failures(results)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if len(results) > 0 && results[0].Err == nil {
		fields = append(fields,
			zap.Int("best_horizon", results[0].Horizon),
			zap.Float64("best_buy_threshold", results[0].BuyThreshold),
			zap.Float64("best_sell_threshold", results[0].SellThreshold),
			zap.Float64("best_roi_percent", results[0].Result.ROIPercent),
		)
	}
	b.logger.Info("sweep complete", fields...)

	return results, nil
}

func (b *Backtester) fetch(ctx context.Context, req Request) ([]core.Bar, error) {
	if b.provider == nil {
		return nil, core.Errorf(core.ErrCollectorNotFound, "no history provider configured")
	}

	bars, err := b.provider.FetchHistory(ctx, req.Instrument, req.Start, req.End, req.Granularity)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	if len(bars) == 0 {
		return nil, core.Errorf(core.ErrNoData, "no bars for %s between %s and %s",
			req.Instrument, req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))
	}

	b.logger.Debug("history loaded",
		zap.String("instrument", req.Instrument),
		zap.String("granularity", string(req.Granularity)),
		zap.Int("bars", len(bars)),
	)
	return bars, nil
}

func (b *Backtester) observe(p Params, result *Result, err error, elapsed time.Duration) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordBacktest(string(p.Options.SellRule), statusOf(err), elapsed.Seconds())
	b.recordTrades(result)
}

func (b *Backtester) recordTrades(result *Result) {
	if result == nil {
		return
	}
	for _, t := range result.Trades {
		b.metrics.RecordTrade(string(t.Side), t.TransactionCost)
	}
}

func statusOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
