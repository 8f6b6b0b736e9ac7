// Package dates picks a single-night stay that the booking API does not
// already know about.
package dates

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-booking-e2e/internal/booking"
	"github.com/nbenliogludev/go-booking-e2e/internal/config"
	"github.com/nbenliogludev/go-booking-e2e/internal/logging"
)

// Probe results reported to the observer.
const (
	ProbeFree     = "free"
	ProbeConflict = "conflict"
	ProbeError    = "error"
	ProbeCached   = "cached"
)

const cacheSize = 512

// Searcher is the part of the booking API the finder needs.
type Searcher interface {
	SearchBookings(ctx context.Context, f booking.Filter) ([]int, error)
}

// Selection is the chosen range. Fallback is set when no probed date was
// free and Range was picked without verification.
type Selection struct {
	Range    booking.DateRange
	Fallback bool
	Probed   int
}

// Finder probes candidate dates one day at a time. Conflicting dates are
// remembered for the lifetime of the Finder.
type Finder struct {
	api          Searcher
	fallbackDays int
	now          func() time.Time
	conflicts    *lru.Cache[string, bool]
	observe      func(result string)
	logger       *zap.Logger
}

type Option func(*Finder)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(f *Finder) { f.now = now }
}

// WithObserver is called once per candidate with one of the Probe* results.
func WithObserver(fn func(result string)) Option {
	return func(f *Finder) { f.observe = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Finder) { f.logger = logging.OrNop(l).Named("dates") }
}

func New(api Searcher, cfg config.DatesConfig, opts ...Option) *Finder {
	cache, _ := lru.New[string, bool](cacheSize)
	f := &Finder{
		api:          api,
		fallbackDays: cfg.FallbackOffsetDays,
		now:          time.Now,
		conflicts:    cache,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FindAvailableRange returns the first candidate starting startOffsetDays
// from today whose checkin and checkout days have no bookings, trying at
// most maxProbeDays candidates. A booking reported by either query makes the
// candidate a conflict; otherwise a failed query counts as free. When nothing
// is free, or ctx ends, the fallback offset is used unchecked.
func (f *Finder) FindAvailableRange(ctx context.Context, startOffsetDays, maxProbeDays int) Selection {
	today := booking.StartOfDay(f.now())
	probed := 0

	for i := 0; i < maxProbeDays; i++ {
		if ctx.Err() != nil {
			f.logger.Warn("date probing interrupted", zap.Error(ctx.Err()))
			break
		}
		rng := booking.NewDateRange(today.AddDate(0, 0, startOffsetDays+i))
		probed++
		if f.free(ctx, rng) {
			f.logger.Info("available dates found", zap.Stringer("range", rng), zap.Int("probed", probed))
			return Selection{Range: rng, Probed: probed}
		}
	}

	rng := booking.FixedRange(today, f.fallbackDays)
	f.logger.Warn("no free dates in probe window, using fallback",
		zap.Stringer("range", rng),
		zap.Int("probed", probed),
	)
	return Selection{Range: rng, Fallback: true, Probed: probed}
}

func (f *Finder) free(ctx context.Context, rng booking.DateRange) bool {
	key := rng.CheckinString()
	if conflict, ok := f.conflicts.Get(key); ok && conflict {
		f.notify(ProbeCached)
		return false
	}

	checkins, inErr := f.api.SearchBookings(ctx, booking.Filter{Checkin: rng.CheckinString()})
	if len(checkins) > 0 {
		return f.conflict(rng, key, len(checkins))
	}
	checkouts, outErr := f.api.SearchBookings(ctx, booking.Filter{Checkout: rng.CheckoutString()})
	if len(checkouts) > 0 {
		return f.conflict(rng, key, len(checkouts))
	}

	if err := errors.Join(inErr, outErr); err != nil {
		return f.probeFailed(ctx, rng, err)
	}
	f.notify(ProbeFree)
	return true
}

func (f *Finder) conflict(rng booking.DateRange, key string, n int) bool {
	f.logger.Debug("date conflict", zap.Stringer("range", rng), zap.Int("bookings", n))
	f.conflicts.Add(key, true)
	f.notify(ProbeConflict)
	return false
}

// probeFailed accepts rng unless ctx ended, in which case the caller's loop
// breaks to the fallback.
func (f *Finder) probeFailed(ctx context.Context, rng booking.DateRange, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	f.logger.Warn("date probe failed, assuming no conflict", zap.Stringer("range", rng), zap.Error(err))
	f.notify(ProbeError)
	return true
}

func (f *Finder) notify(result string) {
	if f.observe != nil {
		f.observe(result)
	}
}
