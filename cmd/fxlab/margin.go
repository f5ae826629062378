package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/fxlab/internal/cost"
)

var (
	marginLow      float64
	marginHigh     float64
	marginLots     float64
	marginLeverage int
	marginDeposit  float64
)

var marginCmd = &cobra.Command{
	Use:   "margin",
	Short: "Compute margin requirements and buying power",
	RunE:  runMargin,
}

func init() {
	fs := marginCmd.Flags()
	fs.Float64Var(&marginLow, "low", 0, "low price of the range")
	fs.Float64Var(&marginHigh, "high", 0, "high price of the range")
	fs.Float64Var(&marginLots, "lots", 100000, "units to hold")
	fs.IntVar(&marginLeverage, "leverage", cost.DefaultLeverage, "leverage")
	fs.Float64Var(&marginDeposit, "deposit", 0, "margin deposit to convert to buying power")

	rootCmd.AddCommand(marginCmd)
}

func runMargin(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if marginLow <= 0 && marginHigh <= 0 && marginDeposit <= 0 {
		return fmt.Errorf("pass --low and --high, or --deposit")
	}

	if marginLow > 0 || marginHigh > 0 {
		req, err := cost.RequiredMargin(marginLow, marginHigh, marginLots, marginLeverage)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Required margin: %.2f\n", req)
	}
	if marginDeposit > 0 {
		power, err := cost.ApplyLeverage(marginDeposit, marginLeverage)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Buying power: %.2f\n", power)
	}
	return nil
}
