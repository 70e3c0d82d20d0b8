package domain

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"
)

// MediaType is the type hint produced by the page scraper.
type MediaType string

const (
	MediaUnknown MediaType = "unknown"
	MediaVideo   MediaType = "video"
	MediaImage   MediaType = "image"
)

// ScrapeResult is the media URL resolved from a landing page.
type ScrapeResult struct {
	MediaURL  string
	MediaType MediaType
}

// Validate reports ErrMediaNotFound unless MediaURL is an absolute http(s) URL.
func (r ScrapeResult) Validate() error {
	u := strings.ToLower(r.MediaURL)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return ErrMediaNotFound
	}
	return nil
}

// RenderedPage is the DOM snapshot a browser engine returns after the page settled.
type RenderedPage struct {
	URL  string // final URL after redirects
	HTML string
}

// TempFile is a downloaded media file owned by a single message handling.
type TempFile struct {
	Path        string
	Extension   string // lower-cased, with leading dot; may be empty
	ContentType string
	Size        int64
}

// Remove deletes the file. Removing an already removed file is not an error.
func (f *TempFile) Remove() error {
	if f == nil || f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// UploadKind selects the chat attachment method.
type UploadKind string

const (
	KindVideo     UploadKind = "video"
	KindPhoto     UploadKind = "photo"
	KindAnimation UploadKind = "animation"
	KindAudio     UploadKind = "audio"
)

// Inbound is a single text message received from the chat transport.
type Inbound struct {
	UpdateID  int
	ChatID    int64
	MessageID int
	Text      string
	From      string
}

// Outcome labels how a message handling ended.
type Outcome string

const (
	OutcomeDone             Outcome = "done"
	OutcomeRejected         Outcome = "rejected"
	OutcomeGreeting         Outcome = "greeting"
	OutcomeMediaNotFound    Outcome = "media_not_found"
	OutcomeScrapeTimeout    Outcome = "scrape_timeout"
	OutcomeDownloadFailed   Outcome = "download_failed"
	OutcomeUnsupportedMedia Outcome = "unsupported_media_type"
	OutcomeUploadFailed     Outcome = "upload_failed"
	OutcomeTooLarge         Outcome = "too_large"
	OutcomeInternal         Outcome = "internal_error"
)

// URLExtension returns the lower-cased extension of the URL path, or "" when there is none.
func URLExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "." || strings.ContainsAny(ext, "/ ") {
		return ""
	}
	return ext
}
