package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/newthinker/fxlab/internal/backtest"
)

// WriteSweep prints sweep results as a table in the order given. top limits
// the rows; zero or less prints all of them.
func WriteSweep(w io.Writer, results []backtest.SweepResult, top int) error {
	if top <= 0 || top > len(results) {
		top = len(results)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HORIZON\tBUY\tSELL\tROI %\tENDING\tFILLS\tCOST\tWIN %")
	fmt.Fprintln(tw, "-------\t---\t----\t-----\t------\t-----\t----\t-----")
	for _, sr := range results[:top] {
		if sr.Err != nil {
			fmt.Fprintf(tw, "%d\t%s\t%s\terror: %v\t\t\t\t\n", sr.Horizon, ftoa(sr.BuyThreshold), ftoa(sr.SellThreshold), sr.Err)
			continue
		}
		r := sr.Result
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%d\t%.4f\t%.1f\n",
			sr.Horizon, ftoa(sr.BuyThreshold), ftoa(sr.SellThreshold),
			r.ROIPercent, r.EndingCapital, len(r.Trades), r.TotalTransactionCost, r.Stats.WinRate)
	}
	return tw.Flush()
}
