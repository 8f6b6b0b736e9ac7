package browsertest

import (
	"fmt"
	"strings"

	"github.com/nbenliogludev/go-booking-e2e/internal/browser"
)

const formFields = `
<input class="form-control" name="firstname" placeholder="Firstname">
<input class="form-control" name="lastname" placeholder="Lastname">
<input class="form-control" name="email" type="email" required placeholder="Email">
<input class="form-control" name="phone" placeholder="Phone">
<button class="btn btn-primary w-100 mb-3">Reserve Now</button>`

// ReservationPage is the room page before the form is revealed.
func ReservationPage() string {
	return `<html><body><h1>Single</h1>
<button class="btn btn-primary w-100 mb-3" id="doReservation">Reserve Now</button>
<form class="d-none">` + formFields + `</form></body></html>`
}

// FormPage is the room page with the form open.
func FormPage() string {
	return `<html><body><h1>Single</h1><form>` + formFields + `</form></body></html>`
}

// ValidationPage shows the server-side validation alert.
func ValidationPage(messages ...string) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "<p>%s</p>\n", m)
	}
	return `<html><body><form>` + formFields + `</form>
<div class="alert alert-danger" role="alert">` + b.String() + `</div></body></html>`
}

// ConfirmationPage is shown after a successful booking.
func ConfirmationPage() string {
	return `<html><body><div class="card-body text-center">
<h2 class="card-title fs-4 fw-bold mb-3">Booking Confirmed</h2>
<p>Your booking has been confirmed for the following dates:</p>
</div></body></html>`
}

// AppErrorPage is the Next.js client exception screen.
func AppErrorPage() string {
	return `<html><body><h2>Application error: a client-side exception has occurred (see the browser console for more information).</h2></body></html>`
}

// NewBookingSite returns a session that reveals the form on the first
// "Reserve Now" click and renders submit(filled) when the form is submitted.
func NewBookingSite(submit func(filled map[string]string) string) *FakeSession {
	f := New(ReservationPage())
	revealed := false
	f.OnClick = func(t browser.Target, filled map[string]string) string {
		if !revealed {
			revealed = true
			return FormPage()
		}
		if submit == nil {
			return ""
		}
		return submit(filled)
	}
	return f
}
