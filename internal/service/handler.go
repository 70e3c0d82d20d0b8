// Package service runs the per-message pipeline: classify, scrape, download, upload.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinapav47-ux/igramrelay/internal/classifier"
	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
	"github.com/tinapav47-ux/igramrelay/internal/core/ports"
	"github.com/tinapav47-ux/igramrelay/internal/metrics"
	"github.com/tinapav47-ux/igramrelay/internal/relay"
)

// User facing texts.
const (
	TextGreeting      = "Send me a media link from igram.world or sf-converter.com and I'll send you the media."
	TextRejected      = "❌ Please send a valid media link from igram.world or sf-converter.com."
	TextStatus        = "⏳ Fetching media, please wait..."
	TextNotRetrieved  = "⚠️ Error: Could not retrieve media. Make sure the link is valid, fresh, and contains media."
	TextTooLarge      = "⚠️ The media is too large to send via Telegram."
	TextSendFailed    = "⚠️ Error: Failed to send the media. Please try again later."
	textUnsupportedFm = "⚠️ Unsupported media type: %s"
)

const cleanupTimeout = 10 * time.Second

// Deliverer uploads a downloaded file and disposes of it.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, file *domain.TempFile, hint domain.MediaType) error
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Classifier  *classifier.Classifier
	Scraper     ports.Scraper
	Fetcher     ports.Fetcher
	Deliverer   Deliverer
	Messenger   ports.Messenger
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	StatusDelay time.Duration
}

// Handler processes one inbound message at a time; it is safe for concurrent use.
type Handler struct {
	Deps
}

// New creates a Handler.
func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.StatusDelay <= 0 {
		deps.StatusDelay = 3 * time.Second
	}
	return &Handler{Deps: deps}
}

// Handle runs the whole pipeline for msg and replies to the chat. It never panics and
// returns the outcome it logged.
func (h *Handler) Handle(ctx context.Context, msg domain.Inbound) (outcome domain.Outcome) {
	start := time.Now()
	logger := h.Logger.With("request_id", uuid.NewString(), "chat_id", msg.ChatID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panic", "panic", r)
			outcome = domain.OutcomeInternal
			h.reply(ctx, logger, msg.ChatID, TextSendFailed)
		}
		h.Metrics.ObserveOutcome(outcome)
		h.Metrics.ObserveStage(metrics.StageTotal, start)
		logger.Info("message handled", "outcome", outcome, "duration", time.Since(start))
	}()

	if isCommand(msg.Text, "start", "help") {
		h.reply(ctx, logger, msg.ChatID, TextGreeting)
		return domain.OutcomeGreeting
	}

	res := h.Classifier.Classify(msg.Text)
	logger.Debug("classified", "state", stateClassified, "decision", res.Decision, "url", res.URL)
	if res.Decision == classifier.Rejected {
		h.reply(ctx, logger, msg.ChatID, TextRejected)
		return domain.OutcomeRejected
	}

	status := h.postStatus(ctx, logger, msg.ChatID)
	defer status.finish()

	err := h.run(ctx, logger, msg.ChatID, res)
	outcome = domain.OutcomeOf(err)
	if err != nil {
		logger.Warn("pipeline failed", "state", stateErrored, "outcome", outcome, "error", err)
		h.reply(ctx, logger, msg.ChatID, errorText(err))
	}
	return outcome
}

func (h *Handler) run(ctx context.Context, logger *slog.Logger, chatID int64, res classifier.Result) error {
	target := domain.ScrapeResult{MediaURL: res.URL, MediaType: domain.MediaUnknown}

	if res.Decision == classifier.NeedsScrape {
		logger.Debug("scraping", "state", stateScraping)
		t := time.Now()
		scraped, err := h.Scraper.Scrape(ctx, res.URL)
		h.Metrics.ObserveStage(metrics.StageScrape, t)
		if err != nil {
			return err
		}
		target = scraped
		logger.Debug("scraped", "state", stateScraped, "media_url", target.MediaURL)
	} else {
		logger.Debug("direct media", "state", stateDirectResolved)
	}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("resolved %q: %w", target.MediaURL, err)
	}
	if err := relay.Precheck(target.MediaURL); err != nil {
		return err
	}

	logger.Debug("downloading", "state", stateDownloading)
	t := time.Now()
	file, err := h.Fetcher.Fetch(ctx, target.MediaURL)
	h.Metrics.ObserveStage(metrics.StageDownload, t)
	if err != nil {
		return err
	}
	logger.Debug("downloaded", "state", stateDownloaded, "bytes", file.Size, "content_type", file.ContentType)

	logger.Debug("uploading", "state", stateUploading)
	t = time.Now()
	err = h.Deliverer.Deliver(ctx, chatID, file, target.MediaType)
	h.Metrics.ObserveStage(metrics.StageUpload, t)
	return err
}

func (h *Handler) reply(ctx context.Context, logger *slog.Logger, chatID int64, text string) {
	if _, err := h.Messenger.SendText(context.WithoutCancel(ctx), chatID, text); err != nil {
		logger.Error("send reply", "error", err)
	}
}

// statusMessage deletes the progress message exactly once: when the timer fires or when
// finish is called, whichever is first. finish blocks until a running deletion is done.
type statusMessage struct {
	once  sync.Once
	timer *time.Timer
	del   func()
}

func (s *statusMessage) finish() {
	if s == nil {
		return
	}
	s.timer.Stop()
	s.once.Do(s.del)
}

func (h *Handler) postStatus(ctx context.Context, logger *slog.Logger, chatID int64) *statusMessage {
	id, err := h.Messenger.SendText(ctx, chatID, TextStatus)
	if err != nil {
		logger.Warn("send status message", "error", err)
		return nil
	}
	s := &statusMessage{}
	s.del = func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if err := h.Messenger.DeleteMessage(dctx, chatID, id); err != nil {
			logger.Warn("delete status message", "message_id", id, "error", err)
		}
	}
	s.timer = time.AfterFunc(h.StatusDelay, func() { s.once.Do(s.del) })
	return s
}

func errorText(err error) string {
	var ute *domain.UnsupportedMediaTypeError
	switch {
	case errors.As(err, &ute):
		ext := ute.Ext
		if ext == "" {
			ext = "unknown"
		}
		return fmt.Sprintf(textUnsupportedFm, ext)
	case errors.Is(err, domain.ErrMediaNotFound),
		errors.Is(err, domain.ErrScrapeTimeout),
		errors.Is(err, domain.ErrDownloadFailed):
		return TextNotRetrieved
	case errors.Is(err, domain.ErrTooLarge):
		return TextTooLarge
	default:
		return TextSendFailed
	}
}

// isCommand reports whether text is one of the bot commands, optionally addressed as
// /cmd@botname.
func isCommand(text string, names ...string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return false
	}
	cmd, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	for _, n := range names {
		if strings.EqualFold(cmd, n) {
			return true
		}
	}
	return false
}
