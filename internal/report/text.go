package report

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/newthinker/fxlab/internal/backtest"
	"github.com/newthinker/fxlab/internal/core"
)

const rule = "----------------------------------------"

// Text writes the console report: one block per fill, then the summary.
type Text struct {
	W io.Writer

	// Summary suppresses the per-fill blocks.
	Summary bool
}

func (t Text) Report(ctx context.Context, r *backtest.Result) error {
	w := bufio.NewWriter(t.W)
	costs := r.Params.Options.UseTransactionCosts

	if !t.Summary {
		for _, tr := range r.Trades {
			writeTrade(w, tr, costs)
		}
	}

	fmt.Fprintf(w, "Starting capital: %s\n", ftoa(r.StartingCapital))
	if r.Params.Options.UseMargin {
		fmt.Fprintf(w, "Beginning Leverage: %s\n", ftoa(r.BuyingPower))
	}
	fmt.Fprintf(w, "Ending capital: %s\n", ftoa(r.EndingCapital))
	if r.Params.Options.UseMargin {
		fmt.Fprintf(w, "Net of borrowed %s: %s\n", ftoa(r.Borrowed), ftoa(r.NetCapital()))
	}
	fmt.Fprintf(w, "Return on investment: %d%%\n", r.ROITruncated())
	if costs {
		fmt.Fprintf(w, "Total Transaction cost: %s\n", ftoa(r.TotalTransactionCost))
	}
	if r.OpenShares > 0 {
		fmt.Fprintf(w, "Open position: %s shares worth %s\n", ftoa(r.OpenShares), ftoa(r.OpenValue))
	}
	if s := r.Stats; s.RoundTrips > 0 {
		fmt.Fprintf(w, "Round trips: %d (win rate %.1f%%, avg return %.3f%%, max drawdown %.3f%%, sharpe %.2f)\n",
			s.RoundTrips, s.WinRate, s.AvgReturn, s.MaxDrawdown, s.SharpeRatio)
	}

	return w.Flush()
}

func writeTrade(w io.Writer, tr backtest.TradeRecord, costs bool) {
	verb, past := "Buying", "bought"
	if tr.Side == core.SideSell {
		verb, past = "Selling", "sold"
	}

	if tr.Side == core.SideBuy {
		fmt.Fprintln(w, rule)
	}
	if tr.Forced {
		fmt.Fprintln(w, "Selling off the open position at the last bar")
	}
	fmt.Fprintln(w, verb)
	fmt.Fprintln(w, tr.Time.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "capital: %s\n", ftoa(tr.CashAfter))
	fmt.Fprintf(w, "%s at: %s\n", past, ftoa(tr.Price))
	if costs {
		fmt.Fprintf(w, "transaction cost: %s\n", ftoa(tr.TransactionCost))
	}
	fmt.Fprintf(w, "%s %s shares\n\n", past, ftoa(tr.Shares))
}
