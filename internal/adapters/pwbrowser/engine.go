package pwbrowser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Engine owns the Playwright driver process shared by all renders.
type Engine struct {
	pw *playwright.Playwright
}

// Start runs the Playwright driver. With install set, the driver and Chromium are
// downloaded first when missing.
func Start(install bool) (*Engine, error) {
	if install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	return &Engine{pw: pw}, nil
}

// Acquirer picks the remote connector when an endpoint is configured and the local launcher
// otherwise.
func (e *Engine) Acquirer(endpoint, token, executablePath string) (Acquirer, error) {
	if endpoint != "" {
		rc, err := NewRemoteConnector(e.pw, endpoint, token)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	return NewLocalLauncher(e.pw, executablePath), nil
}

// Stop shuts the driver down.
func (e *Engine) Stop() error {
	if err := e.pw.Stop(); err != nil {
		return fmt.Errorf("stop playwright: %w", err)
	}
	return nil
}
