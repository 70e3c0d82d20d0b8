package pwbrowser

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/playwright-community/playwright-go"
)

// launchArgs keep Chromium usable inside small containers.
var launchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-accelerated-2d-canvas",
	"--no-zygote",
	"--disable-gpu",
}

// Acquirer yields a browser for one render. The caller closes it.
type Acquirer interface {
	Acquire(ctx context.Context) (playwright.Browser, error)
	Name() string
}

// LocalLauncher starts a headless Chromium process per render.
type LocalLauncher struct {
	pw             *playwright.Playwright
	executablePath string
}

// NewLocalLauncher creates a LocalLauncher. An empty executablePath uses the bundled Chromium.
func NewLocalLauncher(pw *playwright.Playwright, executablePath string) *LocalLauncher {
	return &LocalLauncher{pw: pw, executablePath: executablePath}
}

// Name implements Acquirer.
func (l *LocalLauncher) Name() string { return "local" }

// Acquire implements Acquirer.
func (l *LocalLauncher) Acquire(ctx context.Context) (playwright.Browser, error) {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     launchArgs,
		Timeout:  playwright.Float(remainingMillis(ctx)),
	}
	if l.executablePath != "" {
		opts.ExecutablePath = playwright.String(l.executablePath)
	}
	browser, err := l.pw.Chromium.Launch(opts)
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return browser, nil
}

// RemoteConnector attaches to a remote browser-automation endpoint over CDP.
type RemoteConnector struct {
	pw       *playwright.Playwright
	endpoint string
}

// NewRemoteConnector creates a RemoteConnector. A non-empty token is passed as the
// "token" query parameter, which is what hosted Chromium services expect.
func NewRemoteConnector(pw *playwright.Playwright, endpoint, token string) (*RemoteConnector, error) {
	ep, err := WithToken(endpoint, token)
	if err != nil {
		return nil, err
	}
	return &RemoteConnector{pw: pw, endpoint: ep}, nil
}

// Name implements Acquirer.
func (r *RemoteConnector) Name() string { return "remote" }

// Acquire implements Acquirer.
func (r *RemoteConnector) Acquire(ctx context.Context) (playwright.Browser, error) {
	browser, err := r.pw.Chromium.ConnectOverCDP(r.endpoint, playwright.BrowserTypeConnectOverCDPOptions{
		Timeout: playwright.Float(remainingMillis(ctx)),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to remote browser: %w", err)
	}
	return browser, nil
}

// WithToken adds token to endpoint's query string.
func WithToken(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse browser endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("browser endpoint %q must be an absolute ws(s) or http(s) URL", endpoint)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// remainingMillis converts the ctx deadline into a Playwright timeout. Zero would mean
// "no timeout" to Playwright, so an expired ctx maps to 1ms.
func remainingMillis(ctx context.Context) float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return float64((30 * time.Second).Milliseconds())
	}
	ms := time.Until(deadline).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return float64(ms)
}
