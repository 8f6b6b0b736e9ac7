// Package browser hides the automation engine behind a small Session
// interface. Playwright is the default engine, chromedp the alternative, and
// Document inspects captured HTML without any browser.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrClosed is returned by a session used after Close.
var ErrClosed = errors.New("browser session closed")

// Target addresses one control: elements matching CSS, narrowed to those
// whose text contains Text when Text is set.
type Target struct {
	CSS  string
	Text string
}

// CSS is shorthand for a selector-only target.
func CSS(selector string) Target { return Target{CSS: selector} }

func (t Target) String() string {
	if t.Text == "" {
		return t.CSS
	}
	return fmt.Sprintf("%s:has-text(%q)", t.CSS, t.Text)
}

type ProbeStatus int

const (
	// NotFound: the selector matched nothing.
	NotFound ProbeStatus = iota
	// Hidden: matches exist but none is visible.
	Hidden
	// Found: at least one visible match.
	Found
	// Failed: the probe itself errored (bad selector, dead page).
	Failed
)

func (s ProbeStatus) String() string {
	switch s {
	case NotFound:
		return "not_found"
	case Hidden:
		return "hidden"
	case Found:
		return "found"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("ProbeStatus(%d)", int(s))
	}
}

// Probe is the result of looking up one selector. Texts holds the trimmed,
// non-empty text of visible matches in document order.
type Probe struct {
	Selector string
	Status   ProbeStatus
	Texts    []string
	Err      error
}

func failedProbe(selector string, err error) Probe {
	return Probe{Selector: selector, Status: Failed, Err: err}
}

// Inspector reads page state without changing it.
type Inspector interface {
	Probe(ctx context.Context, selector string) Probe
	// Content returns the rendered page HTML.
	Content(ctx context.Context) (string, error)
	// ValidationMessage returns the HTML5 validation message of the first
	// element matching selector, or "" when there is none.
	ValidationMessage(ctx context.Context, selector string) (string, error)
}

// Session is one browser page driven by a scenario.
type Session interface {
	Inspector
	Goto(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, t Target, timeout time.Duration) error
	Click(ctx context.Context, t Target) error
	Fill(ctx context.Context, selector, value string) error
	Snapshot(ctx context.Context) (*PageSnapshot, error)
	Close() error
}

// cleanText collapses whitespace runs.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func probeFromTexts(selector string, matches int, visible []string) Probe {
	p := Probe{Selector: selector}
	switch {
	case matches == 0:
		p.Status = NotFound
	case len(visible) == 0:
		p.Status = Hidden
	default:
		p.Status = Found
	}
	for _, t := range visible {
		if t = cleanText(t); t != "" {
			p.Texts = append(p.Texts, t)
		}
	}
	return p
}
