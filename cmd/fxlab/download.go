package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	downloadCollector   string
	downloadInstrument  string
	downloadGranularity string
	downloadFrom        string
	downloadTo          string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download candles into storage as CSV",
	Long: `Fetch complete candles for an instrument and save them under the data
prefix, where the csvfile collector can replay them offline.`,
	PreRunE: setup,
	RunE:    runDownload,
}

func init() {
	fs := downloadCmd.Flags()
	fs.StringVar(&downloadCollector, "collector", "oanda", "history source to download from")
	fs.StringVar(&downloadInstrument, "instrument", "", "instrument, e.g. EUR_USD (default from config)")
	fs.StringVar(&downloadGranularity, "granularity", "", "candle granularity (default from config)")
	fs.StringVar(&downloadFrom, "from", "", "start date YYYY-MM-DD (required)")
	fs.StringVar(&downloadTo, "to", "", "end date YYYY-MM-DD (required)")
	downloadCmd.MarkFlagRequired("from")
	downloadCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	instrument := cfg.Backtest.Instrument
	if downloadInstrument != "" {
		instrument = downloadInstrument
	}
	gran := cfg.Backtest.Granularity
	if downloadGranularity != "" {
		gran = downloadGranularity
	}

	g, err := granularityOf(gran)
	if err != nil {
		return err
	}
	start, end, err := parseRange(downloadFrom, downloadTo)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer finish(a)

	path, n, err := a.Download(cmd.Context(), downloadCollector, instrument, g, start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d candles to %s\n", n, path)
	return nil
}
