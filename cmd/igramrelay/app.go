package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tinapav47-ux/igramrelay/internal/adapters/pwbrowser"
	"github.com/tinapav47-ux/igramrelay/internal/adapters/rodbrowser"
	"github.com/tinapav47-ux/igramrelay/internal/classifier"
	"github.com/tinapav47-ux/igramrelay/internal/config"
	"github.com/tinapav47-ux/igramrelay/internal/core/ports"
	"github.com/tinapav47-ux/igramrelay/internal/extract"
	"github.com/tinapav47-ux/igramrelay/internal/logging"
	"github.com/tinapav47-ux/igramrelay/internal/metrics"
	"github.com/tinapav47-ux/igramrelay/internal/scraper"
)

// addConfigFlags registers flags overriding the environment for the most used keys.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	f.String("log-format", "", "log format: text or json (env LOG_FORMAT)")
	f.String("browser-engine", "", "browser engine: playwright or rod (env BROWSER_ENGINE)")
	f.String("hosts-file", "", "YAML allow-list of host fragments (env HOSTS_FILE)")
}

// loadConfig resolves configuration from flags, environment and defaults, in that order.
func loadConfig(cmd *cobra.Command, requireToken bool) (config.Config, *slog.Logger, error) {
	v := config.NewViper()
	for key, flag := range map[string]string{
		"log_level":      "log-level",
		"log_format":     "log-format",
		"browser_engine": "browser-engine",
		"hosts_file":     "hosts-file",
	} {
		if fl := cmd.Flags().Lookup(flag); fl != nil && fl.Changed {
			v.Set(key, fl.Value.String())
		}
	}
	if !requireToken && v.GetString("bot_token") == "" {
		v.Set("bot_token", "unused")
	}

	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func buildClassifier(cfg config.Config, logger *slog.Logger) (*classifier.Classifier, error) {
	rules := classifier.DefaultRules()
	if cfg.HostsFile != "" {
		loaded, err := classifier.LoadRules(cfg.HostsFile)
		if err != nil {
			return nil, err
		}
		rules = loaded
		logger.Info("host rules loaded", "file", cfg.HostsFile, "hosts", rules.Hosts())
	}
	return classifier.New(rules), nil
}

// buildScraper wires the configured browser engine. The returned stop func releases the
// engine and must be called once the scraper is no longer used.
func buildScraper(cfg config.Config, m *metrics.Metrics, logger *slog.Logger) (*scraper.Scraper, func(), error) {
	var (
		renderer ports.Renderer
		stop     = func() {}
	)
	switch cfg.BrowserEngine {
	case config.EngineRod:
		r, err := rodbrowser.NewRenderer(rodbrowser.Options{
			Endpoint:          cfg.BrowserWSEndpoint,
			Token:             cfg.BrowserToken,
			ExecutablePath:    cfg.BrowserExecutablePath,
			NavigationTimeout: cfg.NavigationTimeout,
			SettleDelay:       cfg.SettleDelay,
		}, logger.With("engine", config.EngineRod))
		if err != nil {
			return nil, nil, err
		}
		renderer = r
	default:
		eng, err := pwbrowser.Start(cfg.PlaywrightInstall)
		if err != nil {
			return nil, nil, err
		}
		acq, err := eng.Acquirer(cfg.BrowserWSEndpoint, cfg.BrowserToken, cfg.BrowserExecutablePath)
		if err != nil {
			_ = eng.Stop()
			return nil, nil, err
		}
		renderer = pwbrowser.NewRenderer(acq, pwbrowser.Options{
			NavigationTimeout: cfg.NavigationTimeout,
			SettleDelay:       cfg.SettleDelay,
		}, logger.With("engine", config.EnginePlaywright, "acquirer", acq.Name()))
		stop = func() {
			if err := eng.Stop(); err != nil {
				logger.Warn("stop playwright", "error", err)
			}
		}
	}

	opts := []scraper.Option{scraper.WithSlotWait(cfg.NavigationTimeout)}
	if m != nil {
		opts = append(opts, scraper.WithActiveGauge(m.BrowserSession))
	}
	s := scraper.New(renderer, extract.DefaultProbes, cfg.MaxConcurrentBrowsers, logger, opts...)
	return s, stop, nil
}
