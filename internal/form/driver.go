// Package form drives the reservation form of the booking site.
package form

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-booking-e2e/internal/booking"
	"github.com/nbenliogludev/go-booking-e2e/internal/browser"
	"github.com/nbenliogludev/go-booking-e2e/internal/logging"
)

// Controls of the reservation page.
var (
	RevealButton = browser.Target{CSS: "button", Text: "Reserve Now"}
	SubmitButton = browser.CSS("button.btn.btn-primary.w-100.mb-3")
)

// FieldSelector returns the selector of the input named name.
func FieldSelector(name string) string {
	return fmt.Sprintf("input[name='%s']", name)
}

// Submission records what was actually sent.
type Submission struct {
	URL   string
	Phone string
}

// Driver fills the reservation form of one room.
type Driver struct {
	baseURL string
	roomID  int
	marker  string
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*Driver)

func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) { d.logger = logging.OrNop(l).Named("form") }
}

// WithClock replaces time.Now for phone generation.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// NewDriver builds a driver. actionTimeout bounds each wait for a control.
func NewDriver(baseURL string, roomID int, marker string, actionTimeout time.Duration, opts ...Option) *Driver {
	d := &Driver{
		baseURL: baseURL,
		roomID:  roomID,
		marker:  marker,
		timeout: actionTimeout,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ReservationURL builds {base}/reservation/{room}?checkin=..&checkout=..
func ReservationURL(base string, roomID int, rng booking.DateRange) string {
	q := url.Values{}
	q.Set("checkin", rng.CheckinString())
	q.Set("checkout", rng.CheckoutString())
	return strings.TrimRight(base, "/") + "/reservation/" + strconv.Itoa(roomID) + "?" + q.Encode()
}

// FillAndSubmit opens the reservation page for rng, reveals the form, fills
// it from in and submits. Email is skipped when empty, Phone is generated
// when empty. A control that never shows up yields *ElementNotFoundError.
func (d *Driver) FillAndSubmit(ctx context.Context, s browser.Session, rng booking.DateRange, in booking.FormInput) (Submission, error) {
	sub := Submission{URL: ReservationURL(d.baseURL, d.roomID, rng), Phone: in.Phone}
	if sub.Phone == "" {
		sub.Phone = booking.TestPhone(d.marker, d.now())
	}

	d.logger.Info("opening reservation page", zap.String("url", sub.URL))
	if err := s.Goto(ctx, sub.URL); err != nil {
		return sub, err
	}

	if err := d.click(ctx, s, "reveal", RevealButton); err != nil {
		return sub, err
	}

	fields := []struct{ name, value string }{
		{"firstname", in.FirstName},
		{"lastname", in.LastName},
		{"email", in.Email},
		{"phone", sub.Phone},
	}
	for _, f := range fields {
		if f.name == "email" && f.value == "" {
			d.logger.Debug("leaving email empty")
			continue
		}
		if err := d.fill(ctx, s, f.name, f.value); err != nil {
			return sub, err
		}
	}

	if err := d.click(ctx, s, "submit", SubmitButton); err != nil {
		return sub, err
	}
	d.logger.Info("form submitted",
		zap.String("firstname", in.FirstName),
		zap.String("lastname", in.LastName),
		zap.String("phone", sub.Phone),
	)
	return sub, nil
}

func (d *Driver) click(ctx context.Context, s browser.Session, control string, t browser.Target) error {
	if err := d.await(ctx, s, control, t); err != nil {
		return err
	}
	if err := s.Click(ctx, t); err != nil {
		return fmt.Errorf("click %s: %w", control, err)
	}
	return nil
}

func (d *Driver) fill(ctx context.Context, s browser.Session, name, value string) error {
	sel := FieldSelector(name)
	if err := d.await(ctx, s, name, browser.CSS(sel)); err != nil {
		return err
	}
	if err := s.Fill(ctx, sel, value); err != nil {
		return fmt.Errorf("fill %s: %w", name, err)
	}
	return nil
}

func (d *Driver) await(ctx context.Context, s browser.Session, control string, t browser.Target) error {
	if err := s.WaitVisible(ctx, t, d.timeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ElementNotFoundError{Control: control, Selector: t.String(), Err: err}
	}
	return nil
}
