package domain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestScrapeResultValidate(t *testing.T) {
	tests := []struct {
		url  string
		want error
	}{
		{"https://cdn.example.com/a.mp4", nil},
		{"HTTP://cdn.example.com/a.mp4", nil},
		{"", ErrMediaNotFound},
		{"blob:https://igram.world/1234", ErrMediaNotFound},
		{"/relative/a.mp4", ErrMediaNotFound},
		{"httpx", ErrMediaNotFound},
	}
	for _, tt := range tests {
		err := ScrapeResult{MediaURL: tt.url}.Validate()
		if !errors.Is(err, tt.want) {
			t.Errorf("Validate(%q) = %v, want %v", tt.url, err, tt.want)
		}
	}
}

func TestTempFileRemoveIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media_1.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := &TempFile{Path: path, Extension: ".mp4"}

	if err := f.Remove(); err != nil {
		t.Fatalf("first Remove() error: %v", err)
	}
	if err := f.Remove(); err != nil {
		t.Fatalf("second Remove() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove")
	}

	var nilFile *TempFile
	if err := nilFile.Remove(); err != nil {
		t.Errorf("nil Remove() error: %v", err)
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeDone},
		{fmt.Errorf("render: %w", ErrScrapeTimeout), OutcomeScrapeTimeout},
		{fmt.Errorf("probe: %w", ErrMediaNotFound), OutcomeMediaNotFound},
		{fmt.Errorf("get: %w", ErrDownloadFailed), OutcomeDownloadFailed},
		{&UnsupportedMediaTypeError{Ext: ".xyz"}, OutcomeUnsupportedMedia},
		{fmt.Errorf("send: %w", ErrUploadFailed), OutcomeUploadFailed},
		{ErrTooLarge, OutcomeTooLarge},
		{errors.New("boom"), OutcomeInternal},
	}
	for _, tt := range tests {
		if got := OutcomeOf(tt.err); got != tt.want {
			t.Errorf("OutcomeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestUnsupportedMediaTypeErrorMessage(t *testing.T) {
	err := &UnsupportedMediaTypeError{Ext: ".unknownext"}
	if err.Error() != "unsupported media type: .unknownext" {
		t.Errorf("Error() = %q", err.Error())
	}
	var target *UnsupportedMediaTypeError
	if !errors.As(fmt.Errorf("relay: %w", err), &target) || target.Ext != ".unknownext" {
		t.Errorf("errors.As did not recover extension")
	}
}

func TestURLExtension(t *testing.T) {
	tests := map[string]string{
		"https://cdn/a.mp4":                 ".mp4",
		"https://cdn/a.JPG?x=1":             ".jpg",
		"https://cdn/path.d/file":           "",
		"https://cdn/":                      "",
		"https://cdn/a.unknownext#frag":     ".unknownext",
		"https://media.igram.world/x.mp4":   ".mp4",
		"https://sf-converter.com/dl?id=42": "",
	}
	for in, want := range tests {
		if got := URLExtension(in); got != want {
			t.Errorf("URLExtension(%q) = %q, want %q", in, got, want)
		}
	}
}
