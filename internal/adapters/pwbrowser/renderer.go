// Package pwbrowser renders landing pages with Playwright-driven Chromium.
package pwbrowser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
	"github.com/tinapav47-ux/igramrelay/internal/useragent"
)

// Options tune a Renderer.
type Options struct {
	NavigationTimeout time.Duration // bounds navigation plus settle
	SettleDelay       time.Duration // wait after network idle for client-side script
	Locale            string
	AcceptLanguage    string
	UserAgent         func() string
}

func (o *Options) setDefaults() {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 45 * time.Second
	}
	if o.Locale == "" {
		o.Locale = "en-US"
	}
	if o.AcceptLanguage == "" {
		o.AcceptLanguage = useragent.AcceptLanguage
	}
	if o.UserAgent == nil {
		o.UserAgent = useragent.Random
	}
}

// Renderer implements ports.Renderer with one browser per render.
type Renderer struct {
	acquirer Acquirer
	opts     Options
	logger   *slog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(acquirer Acquirer, opts Options, logger *slog.Logger) *Renderer {
	opts.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{acquirer: acquirer, opts: opts, logger: logger}
}

// Render implements ports.Renderer. The browser is released exactly once on every path.
func (r *Renderer) Render(ctx context.Context, pageURL string) (domain.RenderedPage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.NavigationTimeout)
	defer cancel()

	browser, err := r.acquirer.Acquire(ctx)
	if err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "acquire browser", err)
	}
	release := r.releaser(browser)
	defer release()

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:        playwright.String(r.opts.UserAgent()),
		Locale:           playwright.String(r.opts.Locale),
		ExtraHttpHeaders: map[string]string{"Accept-Language": r.opts.AcceptLanguage},
	})
	if err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "new context", err)
	}
	defer func() {
		if err := bctx.Close(); err != nil {
			r.logger.Debug("close browser context", "error", err)
		}
	}()

	page, err := bctx.NewPage()
	if err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "new page", err)
	}

	if _, err := page.Goto(pageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(remainingMillis(ctx)),
	}); err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "navigate", err)
	}

	if err := settle(ctx, r.opts.SettleDelay); err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "settle", err)
	}

	html, err := page.Content()
	if err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "read content", err)
	}
	return domain.RenderedPage{URL: page.URL(), HTML: html}, nil
}

func (r *Renderer) releaser(browser playwright.Browser) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := browser.Close(); err != nil {
				r.logger.Warn("close browser", "acquirer", r.acquirer.Name(), "error", err)
			}
		})
	}
}

// settle waits d unless ctx ends first.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// scrapeErr tags err as a timeout when either Playwright or ctx gave up, and as
// MediaNotFound otherwise.
func scrapeErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrScrapeTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrMediaNotFound, err)
}
