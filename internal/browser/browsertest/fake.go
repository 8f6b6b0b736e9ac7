// Package browsertest provides an in-memory browser.Session backed by a
// browser.Document.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nbenliogludev/go-booking-e2e/internal/browser"
)

// ErrNotVisible is returned when a target is absent or hidden in the page.
var ErrNotVisible = errors.New("element not visible")

// FakeSession serves static HTML. Fill writes value attributes into the page
// and OnClick may swap the page, which is enough to script a form flow.
type FakeSession struct {
	mu  sync.Mutex
	doc *browser.Document
	url string

	// OnClick is called after a successful click with the current field
	// values. A non-empty return replaces the page.
	OnClick func(t browser.Target, filled map[string]string) string
	// GotoErr fails every navigation when set.
	GotoErr error

	Visited []string
	Filled  map[string]string
	Clicks  []browser.Target
	Closed  int
}

func New(html string) *FakeSession {
	f := &FakeSession{Filled: map[string]string{}}
	f.SetPage(html)
	return f
}

// SetPage replaces the current page.
func (f *FakeSession) SetPage(html string) {
	doc, err := browser.ParseDocument(html)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	f.doc = doc
	f.mu.Unlock()
}

func (f *FakeSession) document() *browser.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc
}

func (f *FakeSession) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GotoErr != nil {
		return f.GotoErr
	}
	f.url = url
	f.Visited = append(f.Visited, url)
	return nil
}

func (f *FakeSession) WaitVisible(ctx context.Context, t browser.Target, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ok, err := f.document().IsVisible(t)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotVisible, t)
	}
	return nil
}

func (f *FakeSession) Click(ctx context.Context, t browser.Target) error {
	if err := f.WaitVisible(ctx, t, 0); err != nil {
		return err
	}
	f.mu.Lock()
	f.Clicks = append(f.Clicks, t)
	filled := make(map[string]string, len(f.Filled))
	for k, v := range f.Filled {
		filled[k] = v
	}
	onClick := f.OnClick
	f.mu.Unlock()

	if onClick != nil {
		if html := onClick(t, filled); html != "" {
			f.SetPage(html)
		}
	}
	return nil
}

func (f *FakeSession) Fill(ctx context.Context, selector, value string) error {
	if err := f.WaitVisible(ctx, browser.CSS(selector), 0); err != nil {
		return err
	}
	if _, err := f.document().SetValue(selector, value); err != nil {
		return err
	}
	f.mu.Lock()
	f.Filled[selector] = value
	f.mu.Unlock()
	return nil
}

func (f *FakeSession) Probe(ctx context.Context, selector string) browser.Probe {
	return f.document().Probe(ctx, selector)
}

func (f *FakeSession) Content(ctx context.Context) (string, error) {
	return f.document().Content(ctx)
}

func (f *FakeSession) ValidationMessage(ctx context.Context, selector string) (string, error) {
	return f.document().ValidationMessage(ctx, selector)
}

func (f *FakeSession) Snapshot(ctx context.Context) (*browser.PageSnapshot, error) {
	html, err := f.Content(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &browser.PageSnapshot{URL: f.url, HTML: html}, nil
}

func (f *FakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed++
	return nil
}

var _ browser.Session = (*FakeSession)(nil)
