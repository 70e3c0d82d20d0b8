package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	raw      map[string]tgbotapi.Params
	sendErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{raw: map[string]tgbotapi.Params{}, updates: make(chan tgbotapi.Update, 4)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[endpoint] = params
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func TestClientSendAndDelete(t *testing.T) {
	api := newFakeAPI()
	c := NewClient(api)

	id, err := c.SendText(context.Background(), 5, "hello")
	if err != nil {
		t.Fatalf("SendText() error: %v", err)
	}
	if id != 1 {
		t.Errorf("message id = %d, want 1", id)
	}
	if msg, ok := api.sent[0].(tgbotapi.MessageConfig); !ok || msg.Text != "hello" || msg.ChatID != 5 {
		t.Errorf("sent = %#v", api.sent[0])
	}

	if err := c.DeleteMessage(context.Background(), 5, id); err != nil {
		t.Fatalf("DeleteMessage() error: %v", err)
	}
	del, ok := api.requests[0].(tgbotapi.DeleteMessageConfig)
	if !ok || del.MessageID != 1 || del.ChatID != 5 {
		t.Errorf("request = %#v, want DeleteMessageConfig via Request", api.requests[0])
	}
	if len(api.sent) != 1 {
		t.Errorf("delete went through Send")
	}
}

func TestClientUploadKinds(t *testing.T) {
	tests := []struct {
		kind  domain.UploadKind
		check func(tgbotapi.Chattable) bool
	}{
		{domain.KindVideo, func(c tgbotapi.Chattable) bool { v, ok := c.(tgbotapi.VideoConfig); return ok && v.SupportsStreaming }},
		{domain.KindPhoto, func(c tgbotapi.Chattable) bool { _, ok := c.(tgbotapi.PhotoConfig); return ok }},
		{domain.KindAnimation, func(c tgbotapi.Chattable) bool { _, ok := c.(tgbotapi.AnimationConfig); return ok }},
		{domain.KindAudio, func(c tgbotapi.Chattable) bool { _, ok := c.(tgbotapi.AudioConfig); return ok }},
	}
	for _, tt := range tests {
		api := newFakeAPI()
		if err := NewClient(api).Upload(context.Background(), 1, tt.kind, "/tmp/media_1_x.bin"); err != nil {
			t.Errorf("Upload(%s) error: %v", tt.kind, err)
			continue
		}
		if !tt.check(api.sent[0]) {
			t.Errorf("Upload(%s) sent %T", tt.kind, api.sent[0])
		}
	}
}

func TestClientUploadErrors(t *testing.T) {
	api := newFakeAPI()
	api.sendErr = errors.New("Too Many Requests")
	if err := NewClient(api).Upload(context.Background(), 1, domain.KindPhoto, "/x.jpg"); err == nil {
		t.Error("Upload() expected error from Send")
	}

	if err := NewClient(newFakeAPI()).Upload(context.Background(), 1, "sticker", "/x"); !errors.Is(err, domain.ErrUnsupportedMediaType) {
		t.Errorf("Upload(sticker) = %v, want ErrUnsupportedMediaType", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api = newFakeAPI()
	if _, err := NewClient(api).SendText(ctx, 1, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("SendText() = %v, want context.Canceled", err)
	}
	if len(api.sent) != 0 {
		t.Error("SendText() called the API after cancellation")
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	got, err := retry(context.Background(), 5, time.Millisecond, discardLogger(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("getMe: timeout")
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("retry() = %d, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), 5, time.Millisecond, discardLogger(), func() (int, error) {
		calls++
		return 0, errors.New("unauthorized")
	})
	if err == nil || !strings.Contains(err.Error(), "after 5 attempts") {
		t.Errorf("retry() error = %v", err)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := retry(ctx, 5, time.Hour, discardLogger(), func() (int, error) {
		return 0, errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("retry() = %v, want context.Canceled", err)
	}
}

type collector struct {
	mu   sync.Mutex
	msgs []domain.Inbound
}

func (c *collector) handle(_ context.Context, m domain.Inbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func textUpdate(id int, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id * 10,
			Chat:      &tgbotapi.Chat{ID: chatID},
			From:      &tgbotapi.User{UserName: "alice"},
			Text:      text,
		},
	}
}

func TestDispatcherSkipsNonText(t *testing.T) {
	col := &collector{}
	d := NewDispatcher(col.handle, discardLogger())

	if d.Dispatch(context.Background(), tgbotapi.Update{UpdateID: 1}) {
		t.Error("Dispatch() accepted update without message")
	}
	if d.Dispatch(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}}) {
		t.Error("Dispatch() accepted message without text")
	}
	if !d.Dispatch(context.Background(), textUpdate(2, 9, "https://igram.world/x")) {
		t.Fatal("Dispatch() rejected text message")
	}
	d.Wait()

	if len(col.msgs) != 1 {
		t.Fatalf("handled %d messages, want 1", len(col.msgs))
	}
	want := domain.Inbound{UpdateID: 2, ChatID: 9, MessageID: 20, Text: "https://igram.world/x", From: "alice"}
	if col.msgs[0] != want {
		t.Errorf("inbound = %+v, want %+v", col.msgs[0], want)
	}
}

func TestPollerDispatchesUntilCancelled(t *testing.T) {
	api := newFakeAPI()
	col := &collector{}
	p := NewPoller(api, NewDispatcher(col.handle, discardLogger()), discardLogger())

	api.updates <- textUpdate(1, 3, "one")
	api.updates <- textUpdate(2, 3, "two")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- p.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		col.mu.Lock()
		n := len(col.msgs)
		col.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("handled %d updates, want 2", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !api.stopped {
		t.Error("StopReceivingUpdates was not called")
	}
	if _, ok := api.requests[0].(tgbotapi.DeleteWebhookConfig); !ok {
		t.Errorf("first request = %T, want DeleteWebhookConfig", api.requests[0])
	}
}

func TestWebhookSecretAndDispatch(t *testing.T) {
	col := &collector{}
	d := NewDispatcher(col.handle, discardLogger())
	wh := NewWebhook(context.Background(), &tgbotapi.BotAPI{}, d, "s3cret", discardLogger())

	body := `{"update_id":7,"message":{"message_id":70,"chat":{"id":11,"type":"private"},"text":"https://media.igram.world/v.mp4"}}`

	tests := []struct {
		name   string
		method string
		secret string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "s3cret", "", http.StatusMethodNotAllowed},
		{"missing secret", http.MethodPost, "", body, http.StatusForbidden},
		{"wrong secret", http.MethodPost, "nope", body, http.StatusForbidden},
		{"bad json", http.MethodPost, "s3cret", "{", http.StatusBadRequest},
		{"ok", http.MethodPost, "s3cret", body, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/telegram", strings.NewReader(tt.body))
			if tt.secret != "" {
				req.Header.Set(secretHeader, tt.secret)
			}
			rec := httptest.NewRecorder()
			wh.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
	wh.Wait()

	if len(col.msgs) != 1 || col.msgs[0].ChatID != 11 || col.msgs[0].UpdateID != 7 {
		t.Errorf("dispatched = %+v, want one message for chat 11", col.msgs)
	}
}

func TestWebhookURL(t *testing.T) {
	tests := []struct {
		base, path, want string
		wantErr          bool
	}{
		{"https://bot.example.com", "/telegram", "https://bot.example.com/telegram", false},
		{"https://bot.example.com/", "telegram", "https://bot.example.com/telegram", false},
		{"bot.example.com", "/telegram", "", true},
	}
	for _, tt := range tests {
		got, err := WebhookURL(tt.base, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("WebhookURL(%q) error = %v, wantErr %v", tt.base, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("WebhookURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestRegisterWebhook(t *testing.T) {
	api := newFakeAPI()
	if err := RegisterWebhook(api, "https://bot.example.com/telegram", "s3cret"); err != nil {
		t.Fatalf("RegisterWebhook() error: %v", err)
	}
	p := api.raw["setWebhook"]
	if p["url"] != "https://bot.example.com/telegram" || p["secret_token"] != "s3cret" {
		t.Errorf("params = %v", p)
	}

	api = newFakeAPI()
	_ = RegisterWebhook(api, "https://x/telegram", "")
	if _, ok := api.raw["setWebhook"]["secret_token"]; ok {
		t.Error("empty secret was sent")
	}
}
