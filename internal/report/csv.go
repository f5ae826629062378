package report

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/newthinker/fxlab/internal/backtest"
)

var tradeHeader = []string{"time", "side", "bar_index", "price", "shares", "cash_after", "transaction_cost", "forced"}

// CSV writes the trade log, one row per fill.
type CSV struct {
	W io.Writer
}

func (c CSV) Report(ctx context.Context, r *backtest.Result) error {
	return WriteTrades(c.W, r.Trades)
}

// WriteTrades writes trades with a header row.
func WriteTrades(w io.Writer, trades []backtest.TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		err := cw.Write([]string{
			t.Time.UTC().Format(time.RFC3339),
			string(t.Side),
			strconv.Itoa(t.BarIndex),
			ftoa(t.Price),
			ftoa(t.Shares),
			ftoa(t.CashAfter),
			ftoa(t.TransactionCost),
			strconv.FormatBool(t.Forced),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
