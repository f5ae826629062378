package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/newthinker/fxlab/internal/backtest"
)

// Log emits a debug entry per fill and an info summary.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Report(ctx context.Context, r *backtest.Result) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("instrument", r.Instrument), zap.Int("horizon", r.Horizon))

	for _, t := range r.Trades {
		logger.Debug("fill",
			zap.String("side", string(t.Side)),
			zap.Int("bar_index", t.BarIndex),
			zap.Time("time", t.Time),
			zap.Float64("price", t.Price),
			zap.Float64("shares", t.Shares),
			zap.Float64("cash_after", t.CashAfter),
			zap.Float64("transaction_cost", t.TransactionCost),
			zap.Bool("forced", t.Forced),
		)
	}

	logger.Info("backtest result",
		zap.Float64("starting_capital", r.StartingCapital),
		zap.Float64("ending_capital", r.EndingCapital),
		zap.Float64("roi_percent", r.ROIPercent),
		zap.Float64("total_transaction_cost", r.TotalTransactionCost),
		zap.Int("fills", len(r.Trades)),
		zap.Int("round_trips", r.Stats.RoundTrips),
		zap.Float64("win_rate", r.Stats.WinRate),
	)
	return nil
}
