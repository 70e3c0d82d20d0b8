package telegram

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateDecoder parses a webhook request body; *tgbotapi.BotAPI implements it.
type UpdateDecoder interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// Webhook is the http.Handler Telegram posts updates to.
type Webhook struct {
	ctx        context.Context
	decoder    UpdateDecoder
	dispatcher *Dispatcher
	secret     string
	logger     *slog.Logger
}

// NewWebhook creates a Webhook. Handlers it dispatches run under ctx, not the request
// context, because Telegram expects a quick answer.
func NewWebhook(ctx context.Context, decoder UpdateDecoder, dispatcher *Dispatcher, secret string, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{ctx: ctx, decoder: decoder, dispatcher: dispatcher, secret: secret, logger: logger}
}

func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if w.secret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(w.secret)) != 1 {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
	}

	upd, err := w.decoder.HandleUpdate(r)
	if err != nil {
		w.logger.Warn("bad webhook update", "error", err)
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}
	w.dispatcher.Dispatch(w.ctx, *upd)
	rw.WriteHeader(http.StatusOK)
}

// Wait blocks until all handlers started by the webhook returned.
func (w *Webhook) Wait() {
	w.dispatcher.Wait()
}

// WebhookURL joins the public base URL and the route path.
func WebhookURL(publicURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimRight(publicURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse public url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" || u.Host == "" {
		return "", fmt.Errorf("public url %q must be absolute", publicURL)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return u.String() + path, nil
}

// RegisterWebhook points Telegram at link. setWebhook goes through MakeRequest so the
// secret_token parameter can be sent.
func RegisterWebhook(api BotAPI, link, secret string) error {
	params := tgbotapi.Params{"url": link}
	params.AddNonEmpty("secret_token", secret)
	resp, err := api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("set webhook: %s", resp.Description)
	}
	return nil
}
