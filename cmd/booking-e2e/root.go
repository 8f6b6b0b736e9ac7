package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-booking-e2e/internal/bookingapi"
	"github.com/nbenliogludev/go-booking-e2e/internal/config"
	"github.com/nbenliogludev/go-booking-e2e/internal/dates"
	"github.com/nbenliogludev/go-booking-e2e/internal/logging"
	"github.com/nbenliogludev/go-booking-e2e/internal/scenario"
)

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"engine":       "browser.engine",
	"browser":      "browser.name",
	"headless":     "browser.headless",
	"slow-mo":      "browser.slow_mo",
	"log-level":    "log.level",
	"metrics-file": "metrics_file",
	"triage":       "triage.enabled",
}

// cli holds what the subcommands share once flags are parsed.
type cli struct {
	configPath string

	cfg     *config.Config
	logger  *zap.Logger
	metrics *scenario.Metrics
	api     *bookingapi.Client
	finder  *dates.Finder
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:   "booking-e2e",
		Short: "End-to-end checks for the hotel booking demo site",
		Long: `booking-e2e drives the booking site in a real browser and checks the
resulting bookings through the restful-booker API.

The exit code is 0 only when every selected scenario passed.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "config file (default booking-e2e.yaml in . or ./config)")
	pf.String("engine", config.EnginePlaywright, "browser engine: playwright or chromedp")
	pf.String("browser", "firefox", "playwright browser: firefox, chromium or webkit")
	pf.Bool("headless", true, "run the browser headless")
	pf.Duration("slow-mo", 0, "delay before each browser action")
	pf.String("log-level", "info", "log level")
	pf.String("metrics-file", "", "write Prometheus metrics to this textfile on exit")
	pf.Bool("triage", false, "ask OpenAI to triage failures (needs OPENAI_API_KEY)")

	root.AddCommand(c.runCmd(), c.cleanupCmd(), c.datesCmd())
	return root, c
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	v := config.New(c.configPath)
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	cfg, err := config.FromViper(v, c.configPath != "")
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = logger
	c.metrics = scenario.NewMetrics()
	c.api = bookingapi.New(cfg.API,
		bookingapi.WithLogger(logger),
		bookingapi.WithObserver(c.metrics.ObserveAPIRequest),
	)
	c.finder = dates.New(c.api, cfg.Dates,
		dates.WithLogger(logger),
		dates.WithObserver(c.metrics.ObserveDateProbe),
	)
	logger.Debug("config loaded",
		zap.String("engine", cfg.Browser.Engine),
		zap.String("browser", cfg.Browser.Name),
		zap.String("site", cfg.Site.BaseURL),
		zap.String("api", cfg.API.BaseURL),
	)
	return nil
}

// close flushes metrics and the logger. Safe to call when setup never ran.
func (c *cli) close() {
	if c.cfg == nil {
		return
	}
	if err := c.metrics.WriteTextfile(c.cfg.MetricsFile); err != nil {
		c.logger.Warn("write metrics textfile", zap.String("path", c.cfg.MetricsFile), zap.Error(err))
	}
	_ = c.logger.Sync()
}

func since(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond))
}
