package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete bookings carrying the test marker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()
			n, err := c.api.CleanupTestBookings(cmd.Context(), c.cfg.Marker)
			c.metrics.AddCleanupDeleted(n)
			if err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			c.logger.Info("cleanup finished", zap.Int("deleted", n), since(start))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d test bookings marked %q\n", n, c.cfg.Marker)
			return nil
		},
	}
}
