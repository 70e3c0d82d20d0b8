package ports

import (
	"context"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
)

// Renderer drives a browser engine to load a landing page.
type Renderer interface {
	// Render navigates to pageURL, waits for the page to settle and returns the DOM snapshot.
	// Browser resources are released before Render returns, on every path.
	Render(ctx context.Context, pageURL string) (domain.RenderedPage, error)
}

// Scraper resolves a landing page to a direct media URL.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (domain.ScrapeResult, error)
}

// Fetcher streams a media URL to a local temp file.
type Fetcher interface {
	// Fetch returns only after the file is fully written and closed.
	Fetch(ctx context.Context, mediaURL string) (*domain.TempFile, error)
}

// Uploader sends a local file to a chat as an attachment.
type Uploader interface {
	Upload(ctx context.Context, chatID int64, kind domain.UploadKind, path string) error
}

// Messenger sends and deletes plain text messages.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}
