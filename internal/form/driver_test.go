package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-booking-e2e/internal/booking"
	"github.com/nbenliogludev/go-booking-e2e/internal/browser"
	"github.com/nbenliogludev/go-booking-e2e/internal/browser/browsertest"
)

var testRange = booking.NewDateRange(time.Date(2026, time.November, 13, 0, 0, 0, 0, time.Local))

func newTestDriver() *Driver {
	return NewDriver("https://site.test/", 1, "TEST", time.Second,
		WithClock(func() time.Time { return time.Unix(1760451234, 0) }))
}

func TestReservationURL(t *testing.T) {
	got := ReservationURL("https://automationintesting.online/", 1, testRange)
	assert.Equal(t, "https://automationintesting.online/reservation/1?checkin=2026-11-13&checkout=2026-11-14", got)
}

func TestFillAndSubmit(t *testing.T) {
	var submitted map[string]string
	s := browsertest.NewBookingSite(func(filled map[string]string) string {
		submitted = filled
		return browsertest.ConfirmationPage()
	})

	sub, err := newTestDriver().FillAndSubmit(context.Background(), s, testRange, booking.FormInput{
		FirstName: "Jane",
		LastName:  "Smith",
		Email:     "jane.smith@example.com",
		Phone:     "98765432109",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://site.test/reservation/1?checkin=2026-11-13&checkout=2026-11-14"}, s.Visited)
	assert.Equal(t, "98765432109", sub.Phone)
	assert.Equal(t, map[string]string{
		"input[name='firstname']": "Jane",
		"input[name='lastname']":  "Smith",
		"input[name='email']":     "jane.smith@example.com",
		"input[name='phone']":     "98765432109",
	}, submitted)
	assert.Equal(t, []browser.Target{RevealButton, SubmitButton}, s.Clicks)
}

func TestFillAndSubmitSkipsEmptyEmailAndGeneratesPhone(t *testing.T) {
	var submitted map[string]string
	s := browsertest.NewBookingSite(func(filled map[string]string) string {
		submitted = filled
		return ""
	})

	sub, err := newTestDriver().FillAndSubmit(context.Background(), s, testRange, booking.FormInput{
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)

	assert.Equal(t, "TEST451234", sub.Phone)
	assert.NotContains(t, submitted, "input[name='email']")
	assert.Equal(t, "TEST451234", submitted["input[name='phone']"])
}

func TestFillAndSubmitMissingRevealControl(t *testing.T) {
	s := browsertest.New(`<html><body><p>Room not found</p></body></html>`)

	_, err := newTestDriver().FillAndSubmit(context.Background(), s, testRange, booking.FormInput{FirstName: "A"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.ErrorIs(t, err, browsertest.ErrNotVisible)

	var notFound *ElementNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "reveal", notFound.Control)
	assert.Equal(t, RevealButton.String(), notFound.Selector)
	assert.Empty(t, s.Clicks)
}

func TestFillAndSubmitMissingField(t *testing.T) {
	s := browsertest.New(browsertest.ReservationPage())
	s.OnClick = func(browser.Target, map[string]string) string {
		return `<html><body><form><input name="firstname"></form></body></html>`
	}

	_, err := newTestDriver().FillAndSubmit(context.Background(), s, testRange, booking.FormInput{FirstName: "A", LastName: "B"})

	var notFound *ElementNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "lastname", notFound.Control)
	assert.Equal(t, "input[name='lastname']", notFound.Selector)
}

func TestFillAndSubmitNavigationError(t *testing.T) {
	s := browsertest.NewBookingSite(nil)
	s.GotoErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	_, err := newTestDriver().FillAndSubmit(context.Background(), s, testRange, booking.FormInput{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrElementNotFound)
}

func TestFillAndSubmitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestDriver().FillAndSubmit(ctx, browsertest.NewBookingSite(nil), testRange, booking.FormInput{})
	assert.ErrorIs(t, err, context.Canceled)
}
