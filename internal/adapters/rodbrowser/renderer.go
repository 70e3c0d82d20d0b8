// Package rodbrowser renders landing pages with go-rod, either on a locally launched
// Chromium or on a remote DevTools endpoint.
package rodbrowser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
	"github.com/tinapav47-ux/igramrelay/internal/useragent"
)

// Options tune a Renderer.
type Options struct {
	Endpoint          string // remote DevTools URL; empty launches Chromium locally
	Token             string
	ExecutablePath    string
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	IdleTimeout       time.Duration
}

// Renderer implements ports.Renderer with go-rod.
type Renderer struct {
	opts   Options
	logger *slog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(opts Options, logger *slog.Logger) (*Renderer, error) {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 45 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 10 * time.Second
	}
	if opts.Endpoint != "" {
		ep, err := endpointWithToken(opts.Endpoint, opts.Token)
		if err != nil {
			return nil, err
		}
		opts.Endpoint = ep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{opts: opts, logger: logger}, nil
}

// closeTimeout bounds teardown calls, which run after the render ctx may have expired.
const closeTimeout = 5 * time.Second

// session is one browser connection and the cleanup it needs. The browser itself is not
// bound to the render ctx so Close still reaches it after a timeout; pages are.
type session struct {
	browser *rod.Browser
	close   func()
}

func (r *Renderer) open(ctx context.Context) (*session, error) {
	if r.opts.Endpoint != "" {
		controlURL, err := resolveControlURL(ctx, r.opts.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("resolve devtools endpoint: %w", err)
		}
		b, hangup, err := connect(ctx, controlURL)
		if err != nil {
			return nil, fmt.Errorf("connect to remote browser: %w", err)
		}
		return &session{browser: b, close: closer(r.browserCloser(b), hangup)}, nil
	}

	l := launcher.New().
		Context(ctx).
		Headless(true).
		Leakless(false).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if r.opts.ExecutablePath != "" {
		l = l.Bin(r.opts.ExecutablePath)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}
	kill := func() {
		l.Kill()
		l.Cleanup()
	}
	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	b, hangup, err := connect(ctx, controlURL)
	if err != nil {
		kill()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}
	return &session{browser: b, close: closer(r.browserCloser(b), hangup, kill)}, nil
}

func (r *Renderer) browserCloser(b *rod.Browser) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := b.Context(ctx).Close(); err != nil {
			r.logger.Debug("close rod browser", "error", err)
		}
	}
}

// closer runs steps in order, once, however often it is called.
func closer(steps ...func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, step := range steps {
				step()
			}
		})
	}
}

// Render implements ports.Renderer.
func (r *Renderer) Render(ctx context.Context, pageURL string) (domain.RenderedPage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.NavigationTimeout)
	defer cancel()

	s, err := r.open(ctx)
	if err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "open browser", err)
	}
	defer s.close()

	base, err := stealth.Page(s.browser)
	if err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "new page", err)
	}
	defer func() {
		if err := base.Close(); err != nil {
			r.logger.Debug("close rod page", "error", err)
		}
	}()
	page := base.Context(ctx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      useragent.Random(),
		AcceptLanguage: useragent.AcceptLanguage,
	}); err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "set user agent", err)
	}

	if err := page.Navigate(pageURL); err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "navigate", err)
	}
	if err := page.WaitLoad(); err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "wait load", err)
	}
	if err := page.WaitIdle(r.opts.IdleTimeout); err != nil {
		r.logger.Debug("page did not go idle", "url", pageURL, "error", err)
	}
	if err := settle(ctx, r.opts.SettleDelay); err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "settle", err)
	}

	html, err := page.HTML()
	if err != nil {
		return domain.RenderedPage{}, scrapeErr(ctx, "read content", err)
	}
	finalURL := pageURL
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}
	return domain.RenderedPage{URL: finalURL, HTML: html}, nil
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func scrapeErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrScrapeTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrMediaNotFound, err)
}

func endpointWithToken(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse browser endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("browser endpoint %q must be an absolute URL", endpoint)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
