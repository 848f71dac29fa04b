package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"polymarket-updown-bot/internal/interfaces"
	"polymarket-updown-bot/internal/logger"
)

// ChromeActuator drives a real browser session. A persistent profile
// directory keeps the wallet session alive across runs, which is the whole
// point: order placement rides on cookies a human established once.
type ChromeActuator struct {
	allocCancel context.CancelFunc
	browserCtx  context.Context
	ctxCancel   context.CancelFunc
}

var _ interfaces.Actuator = (*ChromeActuator)(nil)

// Options configures the browser session.
type Options struct {
	Headless   bool
	ProfileDir string
}

// NewChromeActuator launches the browser. The caller owns the lifetime and
// must Close.
func NewChromeActuator(ctx context.Context, opts Options) (*ChromeActuator, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1440, 900),
	)
	if opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.ProfileDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	// Force the browser process up front so a broken install fails here,
	// not on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		ctxCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	logger.Info(ctx, "browser session started",
		"headless", opts.Headless, "profile_dir", opts.ProfileDir)
	return &ChromeActuator{
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		ctxCancel:   ctxCancel,
	}, nil
}

// Navigate loads a URL and waits for the document to be ready.
func (a *ChromeActuator) Navigate(ctx context.Context, url string) error {
	err := a.run(ctx, 0, chromedp.Navigate(url), chromedp.WaitReady("body"))
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// ReadText returns the trimmed visible text of the first matching element.
func (a *ChromeActuator) ReadText(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	var text string
	err := a.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Text(selector, &text, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// Click clicks the first matching element once it is visible.
func (a *ChromeActuator) Click(ctx context.Context, selector string, timeout time.Duration) error {
	err := a.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

// Fill clears the first matching input and types the value.
func (a *ChromeActuator) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	err := a.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	return nil
}

// WaitVisible blocks until the selector renders or the timeout expires.
func (a *ChromeActuator) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := a.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("selector %s never became visible: %w", selector, err)
	}
	return nil
}

// Links snapshots the rendered DOM and extracts text and href for every
// anchor matching the selector.
func (a *ChromeActuator) Links(ctx context.Context, selector string, timeout time.Duration) ([]interfaces.Link, error) {
	var html string
	err := a.run(ctx, timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}
	return ExtractLinks(html, selector)
}

// ExtractLinks parses rendered HTML and collects anchors for the selector.
// Split out of Links so it can be exercised without a browser.
func ExtractLinks(html, selector string) ([]interfaces.Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	var links []interfaces.Link
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, interfaces.Link{
			Text: strings.Join(strings.Fields(sel.Text()), " "),
			Href: href,
		})
	})
	return links, nil
}

// Close tears down the browser session.
func (a *ChromeActuator) Close(ctx context.Context) error {
	logger.Debug(ctx, "closing browser session")
	a.ctxCancel()
	a.allocCancel()
	return nil
}

// run executes chromedp actions under the caller's deadline plus an
// optional per-step timeout.
func (a *ChromeActuator) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	stepCtx := a.browserCtx
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(stepCtx, timeout)
		defer cancel()
	}
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(stepCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
