// Package extract finds the media URL in a rendered landing page.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tinapav47-ux/igramrelay/internal/core/domain"
)

// Match is a candidate media URL found by a probe.
type Match struct {
	URL   string
	Type  domain.MediaType
	Probe string
}

// Probe inspects a document and reports the first value it finds.
type Probe struct {
	Name     string
	Selector string
	Attr     string
	Type     domain.MediaType
}

// Find returns the first non-empty attribute value of the probe's selector.
func (p Probe) Find(doc *goquery.Document) (Match, bool) {
	var m Match
	found := false
	doc.Find(p.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(p.Attr)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return true
		}
		m = Match{URL: v, Type: p.Type, Probe: p.Name}
		found = true
		return false
	})
	return m, found
}

// Probes is a priority-ordered extraction chain. The first match wins.
type Probes []Probe

// VideoProbes is the chain for video-only landing pages.
var VideoProbes = Probes{
	{Name: "video", Selector: "video[src]", Attr: "src", Type: domain.MediaVideo},
	{Name: "video-source", Selector: "video source[src]", Attr: "src", Type: domain.MediaVideo},
	{Name: "source", Selector: "source[src]", Attr: "src", Type: domain.MediaVideo},
	{Name: "download-link", Selector: "a[download][href]", Attr: "href", Type: domain.MediaUnknown},
}

// DefaultProbes adds images between the video sources and the download anchor.
var DefaultProbes = Probes{
	VideoProbes[0],
	VideoProbes[1],
	VideoProbes[2],
	{Name: "image", Selector: "img[src]", Attr: "src", Type: domain.MediaImage},
	VideoProbes[3],
}

// Extract runs the chain over html. Relative values are resolved against pageURL the way the
// DOM src/href properties would be. A missing or non-http match yields ErrMediaNotFound.
func (ps Probes) Extract(pageURL, html string) (domain.ScrapeResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.ScrapeResult{}, fmt.Errorf("parse page: %w", err)
	}

	for _, p := range ps {
		m, ok := p.Find(doc)
		if !ok {
			continue
		}
		res := domain.ScrapeResult{MediaURL: resolve(pageURL, m.URL), MediaType: m.Type}
		if err := res.Validate(); err != nil {
			return domain.ScrapeResult{}, fmt.Errorf("probe %s matched %q: %w", m.Probe, m.URL, err)
		}
		return res, nil
	}
	return domain.ScrapeResult{}, domain.ErrMediaNotFound
}

func resolve(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ref
	}
	return b.ResolveReference(r).String()
}
