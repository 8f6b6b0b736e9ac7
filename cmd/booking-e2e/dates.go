package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) datesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "Print the next conflict-free checkin/checkout pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := c.cfg.Dates
			sel := c.finder.FindAvailableRange(cmd.Context(), d.StartOffsetDays, d.MaxProbeDays)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "checkin:  %s\n", sel.Range.CheckinString())
			fmt.Fprintf(out, "checkout: %s\n", sel.Range.CheckoutString())
			fmt.Fprintf(out, "probed:   %d\n", sel.Probed)
			if sel.Fallback {
				fmt.Fprintln(out, "fallback: true (not verified against the API)")
			}
			return nil
		},
	}
}
