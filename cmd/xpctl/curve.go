package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"anoa.com/venti/internal/modules/progression/curve"
)

func newCurveCommand() *cobra.Command {
	var levels int
	command := &cobra.Command{
		Use:   "curve",
		Short: "Print the XP required for each level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if levels < 1 || levels > 100 {
				return fmt.Errorf("--levels must be between 1 and 100, got %d", levels)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "LEVEL\tXP REQUIRED\tTOTAL XP")
			for _, row := range curve.Table(levels) {
				_, _ = fmt.Fprintf(w, "%d\t%d\t%d\n", row.Level, row.XPRequired, row.TotalXP)
			}
			return w.Flush()
		},
	}
	command.Flags().IntVar(&levels, "levels", 20, "number of levels to print")
	return command
}
