// Package classify decides what happened after a reservation form was
// submitted by looking at the page.
package classify

import (
	"context"
	"strings"
	"time"

	"github.com/nbenliogludev/go-booking-e2e/internal/browser"
)

// Selectors probed for visible feedback, in order.
var (
	ErrorSelectors = []string{
		".alert-danger",
		".invalid-feedback",
		".error",
		"[class*='error']",
		".text-danger",
	}
	SuccessSelectors = []string{
		".alert-success",
		".success",
		".confirmation",
		"[class*='success']",
		".text-success",
	}
)

// EmailField is checked for a native validation message.
const EmailField = "input[name='email']"

// Phrases searched for in the lower-cased page HTML.
var (
	SuccessPhrases    = []string{"booking confirmed", "reservation confirmed", "thank you"}
	ValidationPhrases = []string{"must not be empty", "size must be between"}
	AppErrorPhrases   = []string{"application error", "exception has occurred"}
)

// Result is the classification of one page.
type Result struct {
	Outcome  Outcome
	Messages []string
	Probes   []browser.Probe
	// ContentErr is set when the page HTML could not be read.
	ContentErr error
}

// HasMessage reports whether any message contains substr, ignoring case.
func (r Result) HasMessage(substr string) bool {
	substr = strings.ToLower(substr)
	for _, m := range r.Messages {
		if strings.Contains(strings.ToLower(m), substr) {
			return true
		}
	}
	return false
}

type collector struct {
	seen     map[string]bool
	messages []string
}

func (c *collector) add(msgs ...string) {
	for _, m := range msgs {
		if m == "" || c.seen[m] {
			continue
		}
		if c.seen == nil {
			c.seen = map[string]bool{}
		}
		c.seen[m] = true
		c.messages = append(c.messages, m)
	}
}

// Classify inspects the page once. Failed probes are kept in Probes and do
// not stop the remaining checks. Success beats ValidationError, which beats
// ApplicationError.
func Classify(ctx context.Context, in browser.Inspector) Result {
	var (
		res  Result
		msgs collector
	)

	probe := func(selectors []string) bool {
		found := false
		for _, sel := range selectors {
			p := in.Probe(ctx, sel)
			res.Probes = append(res.Probes, p)
			if p.Status == browser.Found && len(p.Texts) > 0 {
				found = true
				msgs.add(p.Texts...)
			}
		}
		return found
	}
	sawError := probe(ErrorSelectors)
	sawSuccess := probe(SuccessSelectors)

	if v, err := in.ValidationMessage(ctx, EmailField); err == nil && v != "" {
		sawError = true
		msgs.add(v)
	}

	var page string
	if html, err := in.Content(ctx); err != nil {
		res.ContentErr = err
	} else {
		page = strings.ToLower(html)
	}

	success := containsAny(page, SuccessPhrases, &msgs)
	validation := containsAny(page, ValidationPhrases, &msgs)
	appError := containsAny(page, AppErrorPhrases, &msgs)

	switch {
	case success || sawSuccess:
		res.Outcome = Success
	case validation || sawError:
		res.Outcome = ValidationError
	case appError:
		res.Outcome = ApplicationError
	default:
		res.Outcome = Unknown
	}
	res.Messages = msgs.messages
	return res
}

func containsAny(page string, phrases []string, msgs *collector) bool {
	hit := false
	for _, p := range phrases {
		if strings.Contains(page, p) {
			hit = true
			msgs.add(p)
		}
	}
	return hit
}

// Known is the default Await condition.
func Known(r Result) bool { return r.Outcome != Unknown }

// Await classifies repeatedly until the outcome is known or timeout passes,
// and returns the last result.
func Await(ctx context.Context, in browser.Inspector, timeout, interval time.Duration) Result {
	return AwaitUntil(ctx, in, timeout, interval, Known)
}

// AwaitUntil is Await with a caller-supplied stop condition, for pages where
// an early outcome (a native validation bubble, a stale banner) shows up
// before the one being waited for.
func AwaitUntil(ctx context.Context, in browser.Inspector, timeout, interval time.Duration, done func(Result) bool) Result {
	if done == nil {
		done = Known
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res := Classify(ctx, in)
		if done(res) {
			return res
		}
		select {
		case <-ctx.Done():
			return res
		case <-ticker.C:
		}
	}
}
