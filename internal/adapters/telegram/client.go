package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
)

// Client implements ports.Messenger and ports.Uploader. The Bot API client takes no context,
// so ctx is only checked before each call.
type Client struct {
	api BotAPI
}

// NewClient wraps api.
func NewClient(api BotAPI) *Client {
	return &Client{api: api}
}

// SendText sends a plain message and returns its id.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg, err := c.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return msg.MessageID, nil
}

// DeleteMessage removes a message. deleteMessage answers with a bool, which Send cannot
// decode into a Message, hence Request.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

// Upload sends the file at path as the given attachment kind.
func (c *Client) Upload(ctx context.Context, chatID int64, kind domain.UploadKind, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file := tgbotapi.FilePath(path)

	var cfg tgbotapi.Chattable
	switch kind {
	case domain.KindVideo:
		v := tgbotapi.NewVideo(chatID, file)
		v.SupportsStreaming = true
		cfg = v
	case domain.KindPhoto:
		cfg = tgbotapi.NewPhoto(chatID, file)
	case domain.KindAnimation:
		cfg = tgbotapi.NewAnimation(chatID, file)
	case domain.KindAudio:
		cfg = tgbotapi.NewAudio(chatID, file)
	default:
		return &domain.UnsupportedMediaTypeError{Ext: string(kind)}
	}

	if _, err := c.api.Send(cfg); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}
