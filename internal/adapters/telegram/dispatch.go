package telegram

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
)

// HandlerFunc processes one inbound message.
type HandlerFunc func(ctx context.Context, msg domain.Inbound)

// Dispatcher runs each text message in its own goroutine and tracks them for shutdown.
type Dispatcher struct {
	handle HandlerFunc
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher calling handle.
func NewDispatcher(handle HandlerFunc, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{handle: handle, logger: logger}
}

// Dispatch starts handling u. Updates without message text are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, u tgbotapi.Update) bool {
	msg, ok := toInbound(u)
	if !ok {
		return false
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.handle(ctx, msg)
	}()
	return true
}

// Wait blocks until all dispatched handlers returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func toInbound(u tgbotapi.Update) (domain.Inbound, bool) {
	m := u.Message
	if m == nil || m.Chat == nil || m.Text == "" {
		return domain.Inbound{}, false
	}
	in := domain.Inbound{
		UpdateID:  u.UpdateID,
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
	}
	if m.From != nil {
		in.From = m.From.UserName
	}
	return in, true
}
