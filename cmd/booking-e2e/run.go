package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-booking-e2e/internal/form"
	"github.com/nbenliogludev/go-booking-e2e/internal/scenario"
	"github.com/nbenliogludev/go-booking-e2e/internal/triage"
)

func (c *cli) runCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios (all when none is named)",
		Example: `  booking-e2e run
  booking-e2e run missing-email complete-booking --headless=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, sc := range scenario.Scenarios() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", sc.Name, sc.Description)
				}
				return nil
			}
			return c.run(cmd, args)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list scenarios and exit")
	return cmd
}

func (c *cli) run(cmd *cobra.Command, names []string) error {
	ctx := cmd.Context()
	cfg := c.cfg

	var summarizer scenario.Summarizer
	if cfg.Triage.Enabled {
		s, err := triage.FromEnv(cfg.Triage.Model)
		if err != nil {
			c.logger.Warn("triage disabled", zap.Error(err))
		} else {
			summarizer = s
		}
	}

	reporter := scenario.NewReporter(cmd.OutOrStdout(), summarizer)
	runner := scenario.NewRunner(cfg, scenario.Deps{
		Sessions: scenario.NewSessionFactory(cfg.Browser, c.logger),
		API:      c.api,
		Dates:    c.finder,
		Form: form.NewDriver(cfg.Site.BaseURL, cfg.Site.RoomID, cfg.Marker, cfg.Browser.ActionTimeout,
			form.WithLogger(c.logger)),
		Metrics:  c.metrics,
		Reporter: reporter,
		Logger:   c.logger,
	})

	report, err := runner.Run(ctx, names...)
	if err != nil {
		return err
	}
	reporter.Summary(ctx, report)

	if code := report.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}
