package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-booking-e2e/internal/config"
)

const targetAttr = "data-e2e-target"

const visibleFn = `el => {
	const st = window.getComputedStyle(el);
	return st.display !== 'none' && st.visibility !== 'hidden' && el.getClientRects().length > 0;
}`

// ChromeSession drives a Chrome tab over CDP.
type ChromeSession struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	actionTimeout time.Duration
	navTimeout    time.Duration
	slowMo        time.Duration
	marks         atomic.Int64
	closed        atomic.Bool
	logger        *zap.Logger
}

// NewChromeSession launches Chrome. The launch is abandoned when ctx ends or
// after the navigation timeout.
func NewChromeSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*ChromeSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	// An empty Run starts the browser. It must run on the tab context itself,
	// not a deadline child, or the browser dies with the deadline.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()
	if err := awaitStart(ctx, cfg.NavigationTimeout, started); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	logger.Info("chromedp session opened", zap.Bool("headless", cfg.Headless))
	return &ChromeSession{
		allocCancel:   allocCancel,
		ctx:           tabCtx,
		cancel:        cancel,
		actionTimeout: cfg.ActionTimeout,
		navTimeout:    cfg.NavigationTimeout,
		slowMo:        cfg.SlowMo,
		logger:        logger,
	}, nil
}

var errStartTimeout = errors.New("browser did not start in time")

// awaitStart waits for started, giving up when ctx ends or timeout passes.
// A zero timeout waits on ctx alone.
func awaitStart(ctx context.Context, timeout time.Duration, started <-chan error) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	select {
	case err := <-started:
		return err
	case <-deadline:
		return fmt.Errorf("%w after %s", errStartTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *ChromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if s.slowMo > 0 {
		actions = append([]chromedp.Action{chromedp.Sleep(s.slowMo)}, actions...)
	}
	return chromedp.Run(runCtx, actions...)
}

func byValue(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithReturnByValue(true).WithSilent(true)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (s *ChromeSession) Goto(ctx context.Context, url string) error {
	if err := s.run(ctx, s.navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

// resolve returns a CSS selector for t. Text targets are located by script
// and tagged with a unique attribute so chromedp can address them.
func (s *ChromeSession) resolve(ctx context.Context, t Target, timeout time.Duration) (string, error) {
	if t.Text == "" {
		return t.CSS, nil
	}
	mark := strconv.FormatInt(s.marks.Add(1), 10)
	script := fmt.Sprintf(`(() => {
	const visible = %s;
	const el = Array.from(document.querySelectorAll(%s))
		.find(el => (el.textContent || '').includes(%s) && visible(el));
	if (!el) return false;
	el.setAttribute(%s, %s);
	return true;
})()`, visibleFn, jsString(t.CSS), jsString(t.Text), jsString(targetAttr), jsString(mark))

	var ok bool
	if err := s.run(ctx, timeout, chromedp.Poll(script, &ok, chromedp.WithPollingTimeout(timeout))); err != nil {
		return "", fmt.Errorf("locate %s: %w", t, err)
	}
	return fmt.Sprintf(`[%s="%s"]`, targetAttr, mark), nil
}

func (s *ChromeSession) WaitVisible(ctx context.Context, t Target, timeout time.Duration) error {
	sel, err := s.resolve(ctx, t, timeout)
	if err != nil {
		return err
	}
	return s.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

func (s *ChromeSession) Click(ctx context.Context, t Target) error {
	sel, err := s.resolve(ctx, t, s.actionTimeout)
	if err != nil {
		return err
	}
	return s.run(ctx, s.actionTimeout, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *ChromeSession) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx, s.actionTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

type chromeProbe struct {
	Error   string   `json:"error"`
	Matches int      `json:"matches"`
	Texts   []string `json:"texts"`
}

func (s *ChromeSession) Probe(ctx context.Context, selector string) Probe {
	script := fmt.Sprintf(`(() => {
	const visible = %s;
	let nodes;
	try { nodes = Array.from(document.querySelectorAll(%s)); } catch (e) { return {error: String(e)}; }
	return {matches: nodes.length, texts: nodes.filter(visible).map(el => el.innerText || '')};
})()`, visibleFn, jsString(selector))

	var out chromeProbe
	if err := s.run(ctx, s.actionTimeout, chromedp.Evaluate(script, &out, byValue)); err != nil {
		return failedProbe(selector, err)
	}
	if out.Error != "" {
		return failedProbe(selector, errors.New(out.Error))
	}
	return probeFromTexts(selector, out.Matches, out.Texts)
}

func (s *ChromeSession) Content(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, s.actionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *ChromeSession) ValidationMessage(ctx context.Context, selector string) (string, error) {
	script := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return el ? (el.validationMessage || '') : '';
})()`, jsString(selector))

	var msg string
	err := s.run(ctx, s.actionTimeout, chromedp.Evaluate(script, &msg, byValue))
	return msg, err
}

func (s *ChromeSession) Snapshot(ctx context.Context) (*PageSnapshot, error) {
	snap := &PageSnapshot{}
	err := s.run(ctx, s.actionTimeout,
		chromedp.Location(&snap.URL),
		chromedp.Title(&snap.Title),
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
		chromedp.FullScreenshot(&snap.Screenshot, 90),
	)
	if err != nil {
		return snap, fmt.Errorf("chrome snapshot: %w", err)
	}
	return snap, nil
}

func (s *ChromeSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()
	s.allocCancel()
	s.logger.Debug("chromedp session closed")
	return nil
}
