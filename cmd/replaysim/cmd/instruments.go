package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/rustyeddy/replaysim/market"
	"github.com/spf13/cobra"
)

var instrumentsCmd = &cobra.Command{
	Use:   "instruments",
	Short: "List tradable instruments and timeframes",
	Args:  cobra.NoArgs,
	RunE:  runInstruments,
}

func init() {
	rootCmd.AddCommand(instrumentsCmd)
}

func runInstruments(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tBASE\tMULT\tMARGIN\tHOT")
	for _, in := range reg.List() {
		hot := ""
		if in.Hot {
			hot = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%.0f%%\t%s\n",
			in.Code, in.Name, market.FormatPrice(in.BasePrice, in), in.Multiplier, in.MarginRate*100, hot)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), "\nTimeframes:")
	for _, tf := range market.Timeframes {
		fmt.Fprintf(cmd.OutOrStdout(), " %s", tf.Label)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
