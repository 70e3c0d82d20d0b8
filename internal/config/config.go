// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinapav47-ux/igramrelay/internal/logging"
	"github.com/tinapav47-ux/igramrelay/internal/relay"
)

// Browser engines.
const (
	EnginePlaywright = "playwright"
	EngineRod        = "rod"
)

// Config is the validated process configuration.
type Config struct {
	BotToken string

	BrowserEngine         string
	BrowserWSEndpoint     string
	BrowserToken          string
	BrowserExecutablePath string
	PlaywrightInstall     bool
	MaxConcurrentBrowsers int
	NavigationTimeout     time.Duration
	SettleDelay           time.Duration

	PublicURL     string
	Port          string
	WebhookPath   string
	WebhookSecret string

	TempDir           string
	HostsFile         string
	StatusDeleteDelay time.Duration
	DownloadTimeout   time.Duration
	MaxUploadBytes    int64

	JanitorInterval string
	JanitorMaxAge   time.Duration

	LogLevel  string
	LogFormat string
}

// WebhookMode reports whether updates arrive by webhook instead of long polling.
func (c Config) WebhookMode() bool {
	return c.PublicURL != ""
}

// DefaultTempDir is a directory of our own under the system temp dir, so the janitor never
// sweeps files other programs left there.
func DefaultTempDir() string {
	return filepath.Join(os.TempDir(), "igramrelay")
}

// SetDefaults registers every key with its default so AutomaticEnv can resolve it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bot_token", "")
	v.SetDefault("browser_engine", EnginePlaywright)
	v.SetDefault("browser_ws_endpoint", "")
	v.SetDefault("browser_token", "")
	v.SetDefault("browser_executable_path", "")
	v.SetDefault("playwright_install", false)
	v.SetDefault("max_concurrent_browsers", 4)
	v.SetDefault("navigation_timeout", 45*time.Second)
	v.SetDefault("settle_delay", 2*time.Second)
	v.SetDefault("public_url", "")
	v.SetDefault("port", "")
	v.SetDefault("webhook_path", "/telegram")
	v.SetDefault("webhook_secret", "")
	v.SetDefault("temp_dir", DefaultTempDir())
	v.SetDefault("hosts_file", "")
	v.SetDefault("status_delete_delay", 3*time.Second)
	v.SetDefault("download_timeout", 10*time.Minute)
	v.SetDefault("max_upload_bytes", relay.DefaultMaxUploadBytes)
	v.SetDefault("janitor_interval", "@every 10m")
	v.SetDefault("janitor_max_age", 30*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// NewViper returns a viper instance bound to the environment with all defaults set.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads and validates the configuration.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		BotToken:              strings.TrimSpace(v.GetString("bot_token")),
		BrowserEngine:         strings.ToLower(strings.TrimSpace(v.GetString("browser_engine"))),
		BrowserWSEndpoint:     strings.TrimSpace(v.GetString("browser_ws_endpoint")),
		BrowserToken:          v.GetString("browser_token"),
		BrowserExecutablePath: v.GetString("browser_executable_path"),
		PlaywrightInstall:     v.GetBool("playwright_install"),
		MaxConcurrentBrowsers: v.GetInt("max_concurrent_browsers"),
		NavigationTimeout:     v.GetDuration("navigation_timeout"),
		SettleDelay:           v.GetDuration("settle_delay"),
		PublicURL:             strings.TrimSpace(v.GetString("public_url")),
		Port:                  strings.TrimSpace(v.GetString("port")),
		WebhookPath:           v.GetString("webhook_path"),
		WebhookSecret:         v.GetString("webhook_secret"),
		TempDir:               v.GetString("temp_dir"),
		HostsFile:             v.GetString("hosts_file"),
		StatusDeleteDelay:     v.GetDuration("status_delete_delay"),
		DownloadTimeout:       v.GetDuration("download_timeout"),
		MaxUploadBytes:        v.GetInt64("max_upload_bytes"),
		JanitorInterval:       v.GetString("janitor_interval"),
		JanitorMaxAge:         v.GetDuration("janitor_max_age"),
		LogLevel:              v.GetString("log_level"),
		LogFormat:             v.GetString("log_format"),
	}
	if cfg.WebhookPath != "" && !strings.HasPrefix(cfg.WebhookPath, "/") {
		cfg.WebhookPath = "/" + cfg.WebhookPath
	}
	if cfg.TempDir == "" {
		cfg.TempDir = DefaultTempDir()
	}
	return cfg, cfg.Validate()
}

// Validate checks the fields for consistency.
func (c Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	switch c.BrowserEngine {
	case EnginePlaywright, EngineRod:
	default:
		errs = append(errs, fmt.Errorf("BROWSER_ENGINE must be %q or %q, got %q", EnginePlaywright, EngineRod, c.BrowserEngine))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	for name, d := range map[string]time.Duration{
		"NAVIGATION_TIMEOUT":  c.NavigationTimeout,
		"STATUS_DELETE_DELAY": c.StatusDeleteDelay,
		"DOWNLOAD_TIMEOUT":    c.DownloadTimeout,
		"JANITOR_MAX_AGE":     c.JanitorMaxAge,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.SettleDelay < 0 {
		errs = append(errs, errors.New("SETTLE_DELAY must not be negative"))
	}
	if c.MaxConcurrentBrowsers < 1 {
		errs = append(errs, errors.New("MAX_CONCURRENT_BROWSERS must be at least 1"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.WebhookMode() {
		if c.Port == "" {
			errs = append(errs, errors.New("PORT is required when PUBLIC_URL is set"))
		}
		if c.WebhookPath == "" {
			errs = append(errs, errors.New("WEBHOOK_PATH is required when PUBLIC_URL is set"))
		}
	}
	return errors.Join(errs...)
}
