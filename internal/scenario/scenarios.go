package scenario

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-booking-e2e/internal/booking"
	"github.com/nbenliogludev/go-booking-e2e/internal/browser"
	"github.com/nbenliogludev/go-booking-e2e/internal/classify"
)

// Scenario names.
const (
	MissingEmail    = "missing-email"
	CompleteBooking = "complete-booking"
	BookingDeletion = "booking-deletion"
)

// Scenario is one user journey. Run returns nil when the journey passed.
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) error
}

// Env is what a running scenario can reach.
type Env struct {
	Session browser.Session
	runner  *Runner
	result  *Result
}

// Notef adds a line to the scenario's report without failing it.
func (e *Env) Notef(format string, args ...any) {
	e.result.Notes = append(e.result.Notes, fmt.Sprintf(format, args...))
}

func (e *Env) record(rng booking.DateRange, out classify.Result) {
	e.result.Dates = rng.String()
	e.result.Outcome = out.Outcome
	e.result.Messages = out.Messages
}

func (e *Env) pickDates(ctx context.Context) booking.DateRange {
	cfg := e.runner.cfg.Dates
	sel := e.runner.deps.Dates.FindAvailableRange(ctx, cfg.StartOffsetDays, cfg.MaxProbeDays)
	if sel.Fallback {
		e.Notef("no free dates within %d days, using unverified fallback %s", cfg.MaxProbeDays, sel.Range)
	}
	return sel.Range
}

// submit fills the form and waits for the page until expect accepts it. A nil
// expect stops at the first known outcome.
func (e *Env) submit(ctx context.Context, rng booking.DateRange, in booking.FormInput, expect func(classify.Result) bool) (classify.Result, error) {
	e.result.Dates = rng.String()
	if _, err := e.runner.deps.Form.FillAndSubmit(ctx, e.Session, rng, in); err != nil {
		return classify.Result{}, err
	}
	out := e.runner.awaitOutcome(ctx, e.Session, expect)
	e.record(rng, out)
	return out, nil
}

// Scenarios returns the registry in run order.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        MissingEmail,
			Description: "submitting without an email shows a validation error",
			Run:         runMissingEmail,
		},
		{
			Name:        CompleteBooking,
			Description: "a fully filled form on free dates is confirmed",
			Run:         runCompleteBooking,
		},
		{
			Name:        BookingDeletion,
			Description: "test bookings can be found and deleted through the API",
			Run:         runBookingDeletion,
		},
	}
}

// Lookup finds a scenario by name.
func Lookup(scenarios []Scenario, name string) (Scenario, bool) {
	for _, sc := range scenarios {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

func missingEmailShown(out classify.Result) bool {
	return out.Outcome == classify.ValidationError && out.HasMessage("must not be empty")
}

func bookingSettled(out classify.Result) bool {
	return out.Outcome == classify.Success && out.HasMessage("booking confirmed") ||
		out.Outcome == classify.ApplicationError
}

func runMissingEmail(ctx context.Context, env *Env) error {
	cfg := env.runner.cfg
	rng := booking.FixedRange(env.runner.now(), cfg.Dates.FixedOffsetDays)

	out, err := env.submit(ctx, rng, booking.FormInput{
		FirstName: "Test",
		LastName:  "User",
		Phone:     "12345678909",
	}, missingEmailShown)
	if err != nil {
		return err
	}

	if out.Outcome != classify.ValidationError {
		return &AssertionError{Scenario: MissingEmail, Expected: classify.ValidationError.String(), Got: describe(out)}
	}
	if !out.HasMessage("must not be empty") {
		return &AssertionError{Scenario: MissingEmail, Expected: `a message containing "must not be empty"`, Got: describe(out)}
	}
	return nil
}

func runCompleteBooking(ctx context.Context, env *Env) error {
	rng := env.pickDates(ctx)

	out, err := env.submit(ctx, rng, booking.FormInput{
		FirstName: "Jane",
		LastName:  "Smith",
		Email:     "jane.smith@example.com",
		Phone:     "98765432109",
	}, bookingSettled)
	if err != nil {
		return err
	}

	switch out.Outcome {
	case classify.Success:
		if !out.HasMessage("booking confirmed") {
			return &AssertionError{Scenario: CompleteBooking, Expected: `a "booking confirmed" message`, Got: describe(out)}
		}
		return nil
	case classify.ApplicationError:
		env.Notef("site reported a client-side application error after submit, tolerated")
		return nil
	default:
		return &AssertionError{
			Scenario: CompleteBooking,
			Expected: classify.Success.String() + " or " + classify.ApplicationError.String(),
			Got:      describe(out),
		}
	}
}

// runBookingDeletion books through the UI, then removes test bookings via
// the API. Only the API side decides pass or fail.
func runBookingDeletion(ctx context.Context, env *Env) error {
	r := env.runner
	api := r.deps.API
	marker := r.cfg.Marker
	log := r.logger.With(zap.String("scenario", BookingDeletion))

	if n, err := api.CleanupTestBookings(ctx, marker); err != nil {
		env.Notef("cleanup before booking failed: %v", err)
	} else {
		r.deps.Metrics.AddCleanupDeleted(n)
		env.Notef("removed %d leftover test bookings before booking", n)
	}

	rng := env.pickDates(ctx)
	out, err := env.submit(ctx, rng, booking.FormInput{
		FirstName: "TestDelete",
		LastName:  "User",
		Email:     "delete.test@example.com",
	}, nil)
	if err != nil {
		return err
	}
	env.Notef("booking creation outcome: %s", describe(out))

	ids, err := api.FindTestBookings(ctx, marker)
	if err != nil {
		return fmt.Errorf("find test bookings: %w", err)
	}
	if len(ids) == 0 {
		env.Notef("no bookings carrying %q visible through the API", marker)
		return nil
	}

	token, err := api.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	deleted := 0
	for _, id := range ids {
		if err := api.DeleteBooking(ctx, id, token); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("delete booking failed", zap.Int("booking_id", id), zap.Error(err))
			continue
		}
		deleted++
	}
	r.deps.Metrics.AddCleanupDeleted(deleted)
	env.Notef("deleted %d of %d test bookings", deleted, len(ids))
	if deleted == 0 {
		return &AssertionError{
			Scenario: BookingDeletion,
			Expected: "at least one test booking deleted",
			Got:      fmt.Sprintf("0 of %d deleted", len(ids)),
		}
	}

	env.Notef("%d test bookings remain", len(ids)-deleted)
	return nil
}

func describe(out classify.Result) string {
	if len(out.Messages) == 0 {
		return out.Outcome.String()
	}
	return fmt.Sprintf("%s (%s)", out.Outcome, strings.Join(out.Messages, "; "))
}
