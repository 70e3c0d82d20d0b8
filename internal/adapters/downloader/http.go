package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
	"github.com/tinapav47-ux/igramrelay/internal/useragent"
)

// FilePrefix starts every temp file name; the janitor sweeps by it.
const FilePrefix = "media_"

// HTTPDownloader implements ports.Fetcher using standard HTTP.
type HTTPDownloader struct {
	client *http.Client
	dir    string
	now    func() time.Time
}

// NewHTTPDownloader creates a downloader writing into dir. timeout bounds a whole transfer.
func NewHTTPDownloader(dir string, timeout time.Duration) *HTTPDownloader {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "igramrelay")
	}
	return &HTTPDownloader{
		client: &http.Client{Timeout: timeout},
		dir:    dir,
		now:    time.Now,
	}
}

// Fetch streams mediaURL to a new temp file. The returned file is complete and closed.
// On failure nothing is left on disk.
func (d *HTTPDownloader) Fetch(ctx context.Context, mediaURL string) (*domain.TempFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w: %w", domain.ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", useragent.Random())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %w", mediaURL, domain.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status %s: %w", resp.Status, domain.ErrDownloadFailed)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w: %w", domain.ErrDownloadFailed, err)
	}

	ext := domain.URLExtension(mediaURL)
	tf := &domain.TempFile{
		Path:        filepath.Join(d.dir, d.fileName(ext)),
		Extension:   ext,
		ContentType: resp.Header.Get("Content-Type"),
	}

	out, err := os.OpenFile(tf.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w: %w", tf.Path, domain.ErrDownloadFailed, err)
	}

	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = tf.Remove()
		if copyErr == nil {
			copyErr = closeErr
		}
		return nil, fmt.Errorf("write %s: %w: %w", tf.Path, domain.ErrDownloadFailed, copyErr)
	}
	tf.Size = n
	return tf, nil
}

// fileName embeds a nanosecond timestamp plus a random suffix so concurrent handlers never
// collide.
func (d *HTTPDownloader) fileName(ext string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d_%s%s", FilePrefix, d.now().UnixNano(), id, ext)
}
