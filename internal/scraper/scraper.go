package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
	"github.com/tinapav47-ux/igramrelay/internal/core/ports"
	"github.com/tinapav47-ux/igramrelay/internal/extract"
)

// Scraper renders a landing page with a browser engine and runs the probe chain over it.
type Scraper struct {
	renderer ports.Renderer
	probes   extract.Probes
	gate     *semaphore.Weighted
	slotWait time.Duration
	active   gauge
	logger   *slog.Logger
}

type gauge interface {
	Inc()
	Dec()
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithActiveGauge tracks open browser sessions on g.
func WithActiveGauge(g gauge) Option {
	return func(s *Scraper) { s.active = g }
}

// WithSlotWait bounds how long Scrape queues for a free browser session.
func WithSlotWait(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.slotWait = d
		}
	}
}

// DefaultSlotWait applies when WithSlotWait is not given.
const DefaultSlotWait = 45 * time.Second

// New creates a Scraper. maxSessions bounds concurrently open browser sessions.
func New(renderer ports.Renderer, probes extract.Probes, maxSessions int, logger *slog.Logger, opts ...Option) *Scraper {
	if maxSessions < 1 {
		maxSessions = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scraper{
		renderer: renderer,
		probes:   probes,
		gate:     semaphore.NewWeighted(int64(maxSessions)),
		slotWait: DefaultSlotWait,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape implements ports.Scraper.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (domain.ScrapeResult, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.ScrapeResult{}, fmt.Errorf("wait for browser slot: %w: %w", domain.ErrScrapeTimeout, err)
	}
	page, err := s.render(ctx, pageURL)
	if err != nil {
		return domain.ScrapeResult{}, err
	}

	res, err := s.probes.Extract(page.URL, page.HTML)
	if err != nil {
		s.logger.Debug("no media in rendered page", "url", pageURL, "final_url", page.URL, "html_bytes", len(page.HTML))
		return domain.ScrapeResult{}, err
	}
	s.logger.Debug("media resolved", "url", pageURL, "media_url", res.MediaURL, "media_type", res.MediaType)
	return res, nil
}

func (s *Scraper) acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.slotWait)
	defer cancel()
	return s.gate.Acquire(ctx, 1)
}

func (s *Scraper) render(ctx context.Context, pageURL string) (domain.RenderedPage, error) {
	defer s.gate.Release(1)
	if s.active != nil {
		s.active.Inc()
		defer s.active.Dec()
	}
	return s.renderer.Render(ctx, pageURL)
}
