// Package telegram is the chat transport built on the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the part of *tgbotapi.BotAPI the adapter uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

const (
	initAttempts = 5
	initPause    = 5 * time.Second
)

// NewBot connects to the Bot API, retrying a few times because the first getMe often fails
// while the container network comes up.
func NewBot(ctx context.Context, token string, debug bool, logger *slog.Logger) (*tgbotapi.BotAPI, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bot, err := retry(ctx, initAttempts, initPause, logger, func() (*tgbotapi.BotAPI, error) {
		return tgbotapi.NewBotAPI(token)
	})
	if err != nil {
		return nil, err
	}
	bot.Debug = debug
	logger.Info("telegram bot authorized", "username", bot.Self.UserName)
	return bot, nil
}

func retry[T any](ctx context.Context, attempts int, pause time.Duration, logger *slog.Logger, fn func() (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for i := 1; i <= attempts; i++ {
		logger.Info("initializing telegram bot", "attempt", i, "of", attempts)
		v, err = fn()
		if err == nil {
			return v, nil
		}
		if i == attempts {
			break
		}
		logger.Error("telegram bot init failed, retrying", "error", err, "pause", pause)
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-time.After(pause):
		}
	}
	return v, fmt.Errorf("initialize telegram bot after %d attempts: %w", attempts, err)
}
