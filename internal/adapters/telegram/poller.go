package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Poller receives updates with long polling.
type Poller struct {
	api        BotAPI
	dispatcher *Dispatcher
	logger     *slog.Logger
	timeout    int
}

// NewPoller creates a Poller.
func NewPoller(api BotAPI, dispatcher *Dispatcher, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{api: api, dispatcher: dispatcher, logger: logger, timeout: 60}
}

// Run polls until ctx is done, then waits for in-flight handlers. A stale webhook would make
// getUpdates fail, so it is removed first.
func (p *Poller) Run(ctx context.Context) error {
	if _, err := p.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout
	updates := p.api.GetUpdatesChan(u)
	p.logger.Info("long polling started")

	defer p.dispatcher.Wait()
	for {
		select {
		case <-ctx.Done():
			p.api.StopReceivingUpdates()
			p.logger.Info("long polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			p.dispatcher.Dispatch(ctx, upd)
		}
	}
}
