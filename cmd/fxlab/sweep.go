package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/fxlab/internal/backtest"
	"github.com/newthinker/fxlab/internal/report"
)

var (
	sweepFlags      runFlags
	sweepMaxHorizon int
	sweepBuys       []float64
	sweepSells      []float64
	sweepWorkers    int
	sweepTop        int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep threshold and horizon combinations",
	Long: `Fetch history once and backtest every combination of horizon, buy
threshold and sell threshold in parallel, ranked by return on investment.`,
	PreRunE: setup,
	RunE:    runSweep,
}

func init() {
	sweepFlags.register(sweepCmd)
	sweepFlags.registerStrategy(sweepCmd)
	fs := sweepCmd.Flags()
	fs.IntVar(&sweepMaxHorizon, "max-horizon", 0, "sweep horizons 1..N (0 uses --horizon only)")
	fs.Float64SliceVar(&sweepBuys, "buys", nil, "buy thresholds to try")
	fs.Float64SliceVar(&sweepSells, "sells", nil, "sell thresholds to try")
	fs.IntVar(&sweepWorkers, "workers", 0, "parallel backtests (default GOMAXPROCS)")
	fs.IntVar(&sweepTop, "top", 0, "rows to print")

	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	sweepFlags.apply(cmd)
	fs := cmd.Flags()
	s := &cfg.Sweep
	if fs.Changed("max-horizon") {
		s.MaxHorizon = sweepMaxHorizon
	}
	if fs.Changed("buys") {
		s.BuyThresholds = sweepBuys
	}
	if fs.Changed("sells") {
		s.SellThresholds = sweepSells
	}
	if fs.Changed("workers") {
		s.Workers = sweepWorkers
	}
	if fs.Changed("top") {
		s.Top = sweepTop
	}

	req, err := sweepFlags.request()
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer finish(a)

	bt, err := a.Backtester("")
	if err != nil {
		return err
	}

	results, err := bt.Sweep(cmd.Context(), backtest.SweepRequest{
		Request:    req,
		MaxHorizon: s.MaxHorizon,
		Grid: backtest.Grid{
			BuyThresholds:  s.BuyThresholds,
			SellThresholds: s.SellThresholds,
		},
		Workers: s.Workers,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== fxlab sweep: %s %s, %d points, %d failed ===\n\n",
		req.Instrument, req.Granularity, len(results), backtest.Failures(results))
	return report.WriteSweep(out, results, s.Top)
}
