package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("unrecognized link")
	ErrMediaNotFound        = errors.New("media url not found")
	ErrScrapeTimeout        = errors.New("scrape timed out")
	ErrDownloadFailed       = errors.New("download failed")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrUploadFailed         = errors.New("upload failed")
	ErrTooLarge             = errors.New("media too large")
)

// UnsupportedMediaTypeError carries the extension (or content type) that matched no upload kind.
type UnsupportedMediaTypeError struct {
	Ext string
}

func (e *UnsupportedMediaTypeError) Error() string {
	if e.Ext == "" {
		return "unsupported media type: unknown"
	}
	return fmt.Sprintf("unsupported media type: %s", e.Ext)
}

func (e *UnsupportedMediaTypeError) Unwrap() error {
	return ErrUnsupportedMediaType
}

// OutcomeOf maps a pipeline error to its outcome label.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDone
	case errors.Is(err, ErrInvalidInput):
		return OutcomeRejected
	case errors.Is(err, ErrScrapeTimeout):
		return OutcomeScrapeTimeout
	case errors.Is(err, ErrMediaNotFound):
		return OutcomeMediaNotFound
	case errors.Is(err, ErrDownloadFailed):
		return OutcomeDownloadFailed
	case errors.Is(err, ErrUnsupportedMediaType):
		return OutcomeUnsupportedMedia
	case errors.Is(err, ErrTooLarge):
		return OutcomeTooLarge
	case errors.Is(err, ErrUploadFailed):
		return OutcomeUploadFailed
	default:
		return OutcomeInternal
	}
}
