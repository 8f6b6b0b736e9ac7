// Package booking holds the value types shared by the form driver, the date
// finder and the restful-booker client.
package booking

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO date format used in reservation URLs and API queries.
const DateLayout = "2006-01-02"

// DefaultMarker tags records created by the suite so cleanup can find them.
const DefaultMarker = "TEST"

// DateRange is a single-night stay. The zero value is not a valid range; use
// NewDateRange.
type DateRange struct {
	checkin  time.Time
	checkout time.Time
}

// NewDateRange truncates checkin to its local midnight and sets checkout to
// the following day.
func NewDateRange(checkin time.Time) DateRange {
	day := StartOfDay(checkin)
	return DateRange{checkin: day, checkout: day.AddDate(0, 0, 1)}
}

// FixedRange returns the range starting offsetDays after now, unverified.
func FixedRange(now time.Time, offsetDays int) DateRange {
	return NewDateRange(StartOfDay(now).AddDate(0, 0, offsetDays))
}

func (r DateRange) Checkin() time.Time  { return r.checkin }
func (r DateRange) Checkout() time.Time { return r.checkout }

func (r DateRange) CheckinString() string  { return r.checkin.Format(DateLayout) }
func (r DateRange) CheckoutString() string { return r.checkout.Format(DateLayout) }

func (r DateRange) IsZero() bool { return r.checkin.IsZero() }

func (r DateRange) String() string {
	return r.CheckinString() + ".." + r.CheckoutString()
}

// StartOfDay returns local midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormInput is what the driver types into the reservation form. An empty
// Email is left untouched on the page; an empty Phone is generated.
type FormInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// TestPhone builds "<marker><last 6 digits of unix seconds>". Two calls in
// the same second return the same value.
func TestPhone(marker string, now time.Time) string {
	ts := fmt.Sprintf("%d", now.Unix())
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}
	return marker + ts
}

// Filter narrows GET /booking by exact dates. Empty fields are not sent.
type Filter struct {
	Checkin  string
	Checkout string
}

// Summary is one entry of GET /booking.
type Summary struct {
	ID int `json:"bookingid"`
}

type Dates struct {
	Checkin  string `json:"checkin"`
	Checkout string `json:"checkout"`
}

// Record is a booking as returned by GET /booking/{id}. Email and Phone are
// not part of the restful-booker schema but are decoded when present.
// TotalPrice is any JSON number; the API does not enforce integers.
type Record struct {
	ID              int     `json:"bookingid,omitempty"`
	FirstName       string  `json:"firstname"`
	LastName        string  `json:"lastname"`
	Email           string  `json:"email,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	TotalPrice      float64 `json:"totalprice"`
	DepositPaid     bool    `json:"depositpaid"`
	Dates           Dates   `json:"bookingdates"`
	AdditionalNeeds string  `json:"additionalneeds,omitempty"`
}

// HasMarker reports whether r looks like a suite-created booking: marker in
// LastName or AdditionalNeeds literally, or in FirstName ignoring case.
func (r *Record) HasMarker(marker string) bool {
	if r == nil || marker == "" {
		return false
	}
	return strings.Contains(r.AdditionalNeeds, marker) ||
		strings.Contains(r.LastName, marker) ||
		strings.Contains(strings.ToLower(r.FirstName), strings.ToLower(marker))
}
