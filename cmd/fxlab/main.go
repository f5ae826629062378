package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/fxlab/internal/app"
	"github.com/newthinker/fxlab/internal/config"
	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/logger"
)

var (
	cfgFile     string
	debug       bool
	metricsFile string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fxlab",
	Short: "fxlab - FX threshold strategy research toolkit",
	Long: `fxlab downloads FX candles, backtests buy/sell threshold strategies
with transaction cost and margin modelling, sweeps their parameters and
renders labelled candlestick charts.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write a Prometheus textfile snapshot here on exit")
}

// setup loads config and the logger for commands that need them.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if debug {
		cfg.Log.Development = true
	}
	if metricsFile != "" {
		cfg.Metrics.File = metricsFile
	}

	log, err = logger.New(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}
	return nil
}

// newApp validates the config, with flag overrides applied, and builds the app.
func newApp() (*app.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return app.New(cfg, log)
}

func finish(a *app.App) {
	if err := a.FlushMetrics(); err != nil {
		log.Warn("writing metrics snapshot", zap.Error(err))
	}
	_ = log.Sync()
}

// parseDate accepts YYYY-MM-DD or RFC3339.
func parseDate(flag, s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD or RFC3339)", flag, s)
	}
	return t.UTC(), nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := parseDate("from", from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("to", to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date must be after start date")
	}
	return start, end, nil
}

func granularityOf(s string) (core.Granularity, error) {
	g := core.Granularity(s)
	if g.Duration() == 0 {
		return "", fmt.Errorf("unsupported granularity %q (use M1, M5, M15, H1, H4 or D)", s)
	}
	return g, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
