package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-booking-e2e/internal/config"
)

// PlaywrightSession drives one page of a freshly launched browser. Playwright
// calls are not context aware, so ctx is checked before every action and each
// action carries its own timeout.
type PlaywrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	actionTimeout time.Duration
	navTimeout    time.Duration
	logger        *zap.Logger
}

// NewPlaywrightSession installs the configured browser unless told not to,
// launches it and opens a page with the configured viewport.
func NewPlaywrightSession(cfg config.BrowserConfig, logger *zap.Logger) (*PlaywrightSession, error) {
	if !cfg.SkipInstall {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{cfg.Name}}); err != nil {
			return nil, fmt.Errorf("install playwright %s: %w", cfg.Name, err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	var bt playwright.BrowserType
	switch cfg.Name {
	case "chromium":
		bt = pw.Chromium
	case "webkit":
		bt = pw.WebKit
	default:
		bt = pw.Firefox
	}

	b, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		SlowMo:   playwright.Float(float64(cfg.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch %s: %w", cfg.Name, err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
	})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(ms(cfg.ActionTimeout))
	page.SetDefaultNavigationTimeout(ms(cfg.NavigationTimeout))

	logger.Info("playwright session opened",
		zap.String("browser", cfg.Name),
		zap.Bool("headless", cfg.Headless),
	)
	return &PlaywrightSession{
		pw:            pw,
		browser:       b,
		context:       bctx,
		page:          page,
		actionTimeout: cfg.ActionTimeout,
		navTimeout:    cfg.NavigationTimeout,
		logger:        logger,
	}, nil
}

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

func (s *PlaywrightSession) ready(ctx context.Context) error {
	if s.page == nil {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *PlaywrightSession) locate(t Target) playwright.Locator {
	loc := s.page.Locator(t.CSS)
	if t.Text != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: t.Text})
	}
	return loc.First()
}

// Goto navigates and waits until the network goes idle.
func (s *PlaywrightSession) Goto(ctx context.Context, url string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(ms(s.navTimeout)),
	}); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (s *PlaywrightSession) WaitVisible(ctx context.Context, t Target, timeout time.Duration) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.locate(t).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(ms(timeout)),
	})
}

func (s *PlaywrightSession) Click(ctx context.Context, t Target) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.locate(t).Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(ms(s.actionTimeout)),
	})
}

func (s *PlaywrightSession) Fill(ctx context.Context, selector, value string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(ms(s.actionTimeout)),
	})
}

func (s *PlaywrightSession) Probe(ctx context.Context, selector string) Probe {
	if err := s.ready(ctx); err != nil {
		return failedProbe(selector, err)
	}
	matches, err := s.page.Locator(selector).All()
	if err != nil {
		return failedProbe(selector, err)
	}

	var visible []string
	for _, m := range matches {
		ok, err := m.IsVisible()
		if err != nil || !ok {
			continue
		}
		text, err := m.InnerText(playwright.LocatorInnerTextOptions{
			Timeout: playwright.Float(ms(s.actionTimeout)),
		})
		if err != nil {
			s.logger.Debug("read probe text", zap.String("selector", selector), zap.Error(err))
		}
		visible = append(visible, text)
	}
	return probeFromTexts(selector, len(matches), visible)
}

func (s *PlaywrightSession) Content(ctx context.Context) (string, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	return s.page.Content()
}

func (s *PlaywrightSession) ValidationMessage(ctx context.Context, selector string) (string, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	loc := s.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	v, err := loc.First().Evaluate("el => el.validationMessage || ''", nil)
	if err != nil {
		return "", err
	}
	msg, _ := v.(string)
	return msg, nil
}

func (s *PlaywrightSession) Snapshot(ctx context.Context) (*PageSnapshot, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	snap := &PageSnapshot{URL: s.page.URL()}

	var errs []error
	var err error
	if snap.Title, err = s.page.Title(); err != nil {
		errs = append(errs, fmt.Errorf("title: %w", err))
	}
	if snap.HTML, err = s.page.Content(); err != nil {
		errs = append(errs, fmt.Errorf("content: %w", err))
	}
	if snap.Screenshot, err = s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	}); err != nil {
		errs = append(errs, fmt.Errorf("screenshot: %w", err))
	}
	return snap, errors.Join(errs...)
}

// Close tears down the context, the browser and the driver in that order.
func (s *PlaywrightSession) Close() error {
	if s.page == nil {
		return nil
	}
	var errs []error
	if err := s.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	s.page = nil
	s.logger.Debug("playwright session closed")
	return errors.Join(errs...)
}
