package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/fxlab/internal/chart"
)

var (
	chartFlags  runFlags
	chartWindow int
	chartTarget int
	chartBuy    float64
	chartSell   float64
	chartSplit  bool
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render labelled candlestick windows",
	Long: `Slide a fixed window over the history, render each window as a
candlestick PNG and label it buy, sell or hold by the price move a few bars
after it. Images are stored as <prefix>/<instrument>/<index>.<label>.png.`,
	PreRunE: setup,
	RunE:    runChart,
}

func init() {
	chartFlags.register(chartCmd)
	fs := chartCmd.Flags()
	fs.IntVar(&chartWindow, "window", 0, "bars per image")
	fs.IntVar(&chartTarget, "target", 0, "bars after the window the label looks at")
	fs.Float64Var(&chartBuy, "buy-pct", 0, "rise that labels a window buy")
	fs.Float64Var(&chartSell, "sell-pct", 0, "fall that labels a window sell")
	fs.BoolVar(&chartSplit, "split", false, "label only the second half of the history")

	rootCmd.AddCommand(chartCmd)
}

func runChart(cmd *cobra.Command, args []string) error {
	chartFlags.apply(cmd)
	fs := cmd.Flags()
	c := &cfg.Chart
	if fs.Changed("window") {
		c.Window = chartWindow
	}
	if fs.Changed("target") {
		c.Target = chartTarget
	}
	if fs.Changed("buy-pct") {
		c.BuyPct = chartBuy
	}
	if fs.Changed("sell-pct") {
		c.SellPct = chartSell
	}

	req, err := chartFlags.request()
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
	s, err := bt.Load(cmd.Context(), req)
	if err != nil {
		return err
	}

	labeler := a.Labeler(req.Instrument)
	if chartSplit {
		_, second := s.Split()
		labeler.IndexBase = len(s.Bars) - len(second.Bars)
		s = second
	}

	counts, err := labeler.Run(cmd.Context(), s.Bars)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rendered %d charts under %s\n", counts[chart.Buy]+counts[chart.Sell]+counts[chart.Hold], labeler.Prefix)
	for _, l := range []chart.Label{chart.Buy, chart.Sell, chart.Hold} {
		fmt.Fprintf(out, "  %-5s %d\n", l, counts[l])
	}
	return nil
}
