// Package scenario runs the booking user journeys end to end and reports
// on them.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-booking-e2e/internal/booking"
	"github.com/nbenliogludev/go-booking-e2e/internal/browser"
	"github.com/nbenliogludev/go-booking-e2e/internal/classify"
	"github.com/nbenliogludev/go-booking-e2e/internal/config"
	"github.com/nbenliogludev/go-booking-e2e/internal/dates"
	"github.com/nbenliogludev/go-booking-e2e/internal/form"
	"github.com/nbenliogludev/go-booking-e2e/internal/logging"
)

// SessionFactory opens a fresh browser session for one scenario.
type SessionFactory func(ctx context.Context) (browser.Session, error)

// NewSessionFactory opens sessions with cfg on every call.
func NewSessionFactory(cfg config.BrowserConfig, logger *zap.Logger) SessionFactory {
	return func(ctx context.Context) (browser.Session, error) {
		return browser.Open(ctx, cfg, logger)
	}
}

// BookingAPI is the part of the booking API client scenarios use.
type BookingAPI interface {
	Authenticate(ctx context.Context) (string, error)
	DeleteBooking(ctx context.Context, id int, token string) error
	FindTestBookings(ctx context.Context, marker string) ([]int, error)
	CleanupTestBookings(ctx context.Context, marker string) (int, error)
}

type DateFinder interface {
	FindAvailableRange(ctx context.Context, startOffsetDays, maxProbeDays int) dates.Selection
}

type FormSubmitter interface {
	FillAndSubmit(ctx context.Context, s browser.Session, rng booking.DateRange, in booking.FormInput) (form.Submission, error)
}

// Deps are the collaborators of a Runner. Metrics and Logger may be nil.
type Deps struct {
	Sessions SessionFactory
	API      BookingAPI
	Dates    DateFinder
	Form     FormSubmitter
	Metrics  *Metrics
	Reporter *Reporter
	Logger   *zap.Logger
}

// Runner executes registered scenarios one after the other, each in its
// own browser session.
type Runner struct {
	cfg       *config.Config
	deps      Deps
	scenarios []Scenario
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewRunner(cfg *config.Config, deps Deps) *Runner {
	return &Runner{
		cfg:       cfg,
		deps:      deps,
		scenarios: Scenarios(),
		interval:  250 * time.Millisecond,
		now:       time.Now,
		logger:    logging.OrNop(deps.Logger).Named("scenario"),
	}
}

// selectScenarios resolves names into registry order. No names means all.
func (r *Runner) selectScenarios(names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return r.scenarios, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := Lookup(r.scenarios, n); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, n)
		}
		want[n] = true
	}
	var out []Scenario
	for _, sc := range r.scenarios {
		if want[sc.Name] {
			out = append(out, sc)
		}
	}
	return out, nil
}

// Run executes the named scenarios, or all of them, and returns the report.
// The error is only set for unknown names; scenario failures live in the
// report.
func (r *Runner) Run(ctx context.Context, names ...string) (*Report, error) {
	selected, err := r.selectScenarios(names)
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString(), Started: r.now()}
	r.logger.Info("run started", zap.String("run_id", report.RunID), zap.Int("scenarios", len(selected)))

	for _, sc := range selected {
		if ctx.Err() != nil {
			report.Results = append(report.Results, Result{Name: sc.Name, Err: ErrInterrupted})
			continue
		}
		r.deps.Reporter.ScenarioStarted(sc)
		res := r.runOne(ctx, report.RunID, sc)
		r.deps.Reporter.ScenarioFinished(res)
		report.Results = append(report.Results, res)
	}

	report.Finished = r.now()
	r.logger.Info("run finished",
		zap.String("run_id", report.RunID),
		zap.Int("passed", report.PassedCount()),
		zap.Int("failed", len(report.Results)-report.PassedCount()),
	)
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, runID string, sc Scenario) (res Result) {
	start := r.now()
	res = Result{Name: sc.Name, Outcome: classify.Unknown}
	log := r.logger.With(zap.String("scenario", sc.Name))

	defer func() {
		res.Duration = r.now().Sub(start)
		res.Passed = res.Err == nil
		r.deps.Metrics.ObserveScenario(sc.Name, res.Passed, res.Duration)
		if res.Passed {
			log.Info("scenario passed", zap.Duration("duration", res.Duration))
		} else {
			log.Error("scenario failed", zap.Duration("duration", res.Duration), zap.Error(res.Err))
		}
	}()

	session, err := r.deps.Sessions(ctx)
	if err != nil {
		res.Err = fmt.Errorf("open browser session: %w", err)
		return res
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("close browser session", zap.Error(err))
		}
	}()

	res.Err = sc.Run(ctx, &Env{runner: r, Session: session, result: &res})
	if res.Err != nil && ctx.Err() != nil && !errors.Is(res.Err, ctx.Err()) {
		res.Err = fmt.Errorf("%w: %w", ErrInterrupted, res.Err)
	}
	if res.Err != nil {
		r.saveArtifacts(runID, sc.Name, session, &res)
	}
	return res
}

// saveArtifacts captures the page on failure. It uses a fresh context so an
// interrupted run still leaves evidence behind.
func (r *Runner) saveArtifacts(runID, name string, s browser.Session, res *Result) {
	dir := r.cfg.Browser.ArtifactsDir
	if dir == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Browser.ActionTimeout)
	defer cancel()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		r.logger.Warn("failure snapshot incomplete", zap.String("scenario", name), zap.Error(err))
	}
	paths, err := snap.Save(filepath.Join(dir, runID), name)
	if err != nil {
		r.logger.Warn("save failure snapshot", zap.String("scenario", name), zap.Error(err))
	}
	res.Artifacts = append(res.Artifacts, paths...)
}

// awaitOutcome waits until done accepts the page, or ResultTimeout passes.
// A nil done waits for any known outcome.
func (r *Runner) awaitOutcome(ctx context.Context, in browser.Inspector, done func(classify.Result) bool) classify.Result {
	return classify.AwaitUntil(ctx, in, r.cfg.ResultTimeout, r.interval, done)
}
