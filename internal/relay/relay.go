// Package relay maps a downloaded file onto a chat attachment kind and uploads it.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
	"github.com/tinapav47-ux/igramrelay/internal/core/ports"
)

// DefaultMaxUploadBytes is the Bot API ceiling for uploads by a regular bot.
const DefaultMaxUploadBytes int64 = 50 << 20

var kindByExt = map[string]domain.UploadKind{
	".mp4":  domain.KindVideo,
	".mov":  domain.KindVideo,
	".avi":  domain.KindVideo,
	".mkv":  domain.KindVideo,
	".webm": domain.KindVideo,

	".jpg":  domain.KindPhoto,
	".jpeg": domain.KindPhoto,
	".png":  domain.KindPhoto,
	".bmp":  domain.KindPhoto,
	".webp": domain.KindPhoto,

	".mp3":  domain.KindAudio,
	".m4a":  domain.KindAudio,
	".ogg":  domain.KindAudio,
	".wav":  domain.KindAudio,
	".flac": domain.KindAudio,
	".aac":  domain.KindAudio,

	".gif": domain.KindAnimation,
}

// ResolveKind picks the upload kind. A known extension decides alone; an empty one falls back
// to the Content-Type and then to the scraper hint.
func ResolveKind(ext, contentType string, hint domain.MediaType) (domain.UploadKind, error) {
	ext = strings.ToLower(ext)
	if ext != "" {
		if kind, ok := kindByExt[ext]; ok {
			return kind, nil
		}
		return "", &domain.UnsupportedMediaTypeError{Ext: ext}
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case ct == "image/gif":
		return domain.KindAnimation, nil
	case strings.HasPrefix(ct, "video/"):
		return domain.KindVideo, nil
	case strings.HasPrefix(ct, "image/"):
		return domain.KindPhoto, nil
	case strings.HasPrefix(ct, "audio/"):
		return domain.KindAudio, nil
	}

	switch hint {
	case domain.MediaVideo:
		return domain.KindVideo, nil
	case domain.MediaImage:
		return domain.KindPhoto, nil
	}
	if ct != "" {
		return "", &domain.UnsupportedMediaTypeError{Ext: ct}
	}
	return "", &domain.UnsupportedMediaTypeError{}
}

// Precheck rejects a media URL whose path extension is outside every allow-list, so no
// download is attempted for it. URLs without an extension pass.
func Precheck(mediaURL string) error {
	ext := domain.URLExtension(mediaURL)
	if ext == "" {
		return nil
	}
	if _, ok := kindByExt[ext]; !ok {
		return &domain.UnsupportedMediaTypeError{Ext: ext}
	}
	return nil
}

// Relay uploads downloaded files.
type Relay struct {
	uploader ports.Uploader
	maxBytes int64
	logger   *slog.Logger
}

// New creates a Relay. maxBytes <= 0 selects DefaultMaxUploadBytes.
func New(uploader ports.Uploader, maxBytes int64, logger *slog.Logger) *Relay {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{uploader: uploader, maxBytes: maxBytes, logger: logger}
}

// Deliver uploads file to chatID and removes it afterwards, whatever happens.
func (r *Relay) Deliver(ctx context.Context, chatID int64, file *domain.TempFile, hint domain.MediaType) error {
	defer func() {
		if err := file.Remove(); err != nil {
			r.logger.Warn("remove temp file", "path", file.Path, "error", err)
		}
	}()

	kind, err := ResolveKind(file.Extension, file.ContentType, hint)
	if err != nil {
		return err
	}
	if file.Size > r.maxBytes {
		return fmt.Errorf("%d bytes exceeds %d: %w", file.Size, r.maxBytes, domain.ErrTooLarge)
	}

	r.logger.Debug("uploading media", "chat_id", chatID, "kind", kind, "bytes", file.Size)
	if err := r.uploader.Upload(ctx, chatID, kind, file.Path); err != nil {
		return fmt.Errorf("send %s: %w: %w", kind, domain.ErrUploadFailed, err)
	}
	return nil
}
