package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/fxlab/internal/backtest"
	"github.com/newthinker/fxlab/internal/report"
)

// runFlags are shared by backtest, sweep and chart; unset flags keep config
// values. chart registers only the history flags.
type runFlags struct {
	collector   string
	instrument  string
	granularity string
	from        string
	to          string
	horizon     int
	buy         float64
	sell        float64
	capital     float64
	sellRule    string
	entry       string
	costs       bool
	margin      bool
	leverage    int
	spread      float64
}

// register adds the flags that select history.
func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.collector, "collector", "", "history source: oanda or csvfile (default from config)")
	fs.StringVar(&f.instrument, "instrument", "", "instrument, e.g. EUR_USD")
	fs.StringVar(&f.granularity, "granularity", "", "candle granularity: M1, M5, M15, H1, H4, D")
	fs.StringVar(&f.from, "from", "", "start date YYYY-MM-DD (required)")
	fs.StringVar(&f.to, "to", "", "end date YYYY-MM-DD (required)")
	fs.IntVar(&f.horizon, "horizon", 0, "change window in bars")

	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
}

// registerStrategy adds the threshold, capital and cost flags of a run.
func (f *runFlags) registerStrategy(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.buy, "buy", 0, "buy when the change reaches this fraction")
	fs.Float64Var(&f.sell, "sell", 0, "sell threshold magnitude")
	fs.Float64Var(&f.capital, "capital", 0, "starting capital")
	fs.StringVar(&f.sellRule, "sell-rule", "", "window, price_drop or immediate")
	fs.StringVar(&f.entry, "entry", "", "entry price basis: open or midpoint")
	fs.BoolVar(&f.costs, "costs", true, "charge transaction costs")
	fs.BoolVar(&f.margin, "margin", false, "trade on margin")
	fs.IntVar(&f.leverage, "leverage", 0, "margin leverage")
	fs.Float64Var(&f.spread, "spread", 0, "average spread for transaction costs")
}

// apply copies the flags the user set over the config's backtest section.
func (f *runFlags) apply(cmd *cobra.Command) {
	b := &cfg.Backtest
	fs := cmd.Flags()
	if fs.Changed("collector") {
		cfg.Data.Collector = f.collector
	}
	if fs.Changed("instrument") {
		b.Instrument = f.instrument
	}
	if fs.Changed("granularity") {
		b.Granularity = f.granularity
	}
	if fs.Changed("horizon") {
		b.Horizon = f.horizon
	}
	if fs.Changed("buy") {
		b.BuyThreshold = f.buy
	}
	if fs.Changed("sell") {
		b.SellThreshold = f.sell
	}
	if fs.Changed("capital") {
		b.StartingCapital = f.capital
	}
	if fs.Changed("sell-rule") {
		b.SellRule = f.sellRule
	}
	if fs.Changed("entry") {
		b.EntryPrice = f.entry
	}
	if fs.Changed("costs") {
		b.TransactionCosts = f.costs
	}
	if fs.Changed("margin") {
		b.Margin = f.margin
	}
	if fs.Changed("leverage") {
		b.Leverage = f.leverage
	}
	if fs.Changed("spread") {
		b.Spread = f.spread
	}
}

// request builds the run request from the merged config.
func (f *runFlags) request() (backtest.Request, error) {
	start, end, err := parseRange(f.from, f.to)
	if err != nil {
		return backtest.Request{}, err
	}
	g, err := granularityOf(cfg.Backtest.Granularity)
	if err != nil {
		return backtest.Request{}, err
	}
	return backtest.Request{
		Instrument:  cfg.Backtest.Instrument,
		Granularity: g,
		Start:       start,
		End:         end,
		Horizon:     cfg.Backtest.Horizon,
		Params:      cfg.Backtest.Params(),
	}, nil
}

var (
	backtestFlags   runFlags
	backtestCSV     string
	backtestArchive bool
	backtestQuiet   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest a threshold strategy",
	Long: `Fetch history for one instrument and simulate the buy/sell threshold
strategy over it, printing every fill and the return on investment.`,
	PreRunE: setup,
	RunE:    runBacktest,
}

func init() {
	backtestFlags.register(backtestCmd)
	backtestFlags.registerStrategy(backtestCmd)
	backtestCmd.Flags().StringVar(&backtestCSV, "trades-csv", "", "also write the trade log to this CSV file")
	backtestCmd.Flags().BoolVar(&backtestArchive, "archive", false, "archive the result as JSON in storage")
	backtestCmd.Flags().BoolVarP(&backtestQuiet, "quiet", "q", false, "print the summary only")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	backtestFlags.apply(cmd)
	req, err := backtestFlags.request()
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

	ctx := cmd.Context()
	result, err := bt.Run(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== fxlab backtest ===")
	fmt.Fprintf(out, "Instrument: %s %s\n", req.Instrument, req.Granularity)
	fmt.Fprintf(out, "Period:     %s to %s\n", req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))
	fmt.Fprintf(out, "Horizon:    %d bars, buy %v, sell %v (%s)\n\n",
		req.Horizon, req.Params.BuyThreshold, req.Params.SellThreshold, req.Params.Options.SellRule)

	reporters := report.Multi{
		report.Text{W: out, Summary: backtestQuiet},
		report.Log{Logger: log},
	}
	if backtestCSV != "" {
		f, err := os.Create(backtestCSV)
		if err != nil {
			return fmt.Errorf("creating trade log: %w", err)
		}
		defer f.Close()
		reporters = append(reporters, report.CSV{W: f})
	}
	if err := reporters.Report(ctx, result); err != nil {
		return err
	}

	if backtestArchive {
		path, err := a.Archive(ctx, result)
		if err != nil {
			return err
		}
		log.Info("result archived", zap.String("path", path))
		fmt.Fprintf(out, "Archived: %s\n", path)
	}
	return nil
}
