// Package classifier decides whether an incoming message is a link the bot can relay.
//
// Matching is substring-based over a fixed allow-list of host fragments. It is not a URL
// validator.
package classifier

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decision is the classifier outcome.
type Decision int

const (
	Rejected Decision = iota
	DirectMedia
	NeedsScrape
)

func (d Decision) String() string {
	switch d {
	case DirectMedia:
		return "direct"
	case NeedsScrape:
		return "scrape"
	default:
		return "rejected"
	}
}

// Result is the classification of one message.
type Result struct {
	Decision Decision
	URL      string
}

// Rules is the host allow-list. Direct fragments are checked before Scrape fragments.
type Rules struct {
	Direct []string `yaml:"direct"`
	Scrape []string `yaml:"scrape"`
}

// DefaultRules covers igram.world landing pages and the CDN hosts that serve files directly.
func DefaultRules() Rules {
	return Rules{
		Direct: []string{"media.igram.world", "sf-converter.com"},
		Scrape: []string{"igram.world"},
	}
}

// LoadRules reads an allow-list from a YAML file.
func LoadRules(path string) (Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return Rules{}, fmt.Errorf("open hosts file: %w", err)
	}
	defer f.Close()

	var rules Rules
	if err := yaml.NewDecoder(f).Decode(&rules); err != nil {
		return Rules{}, fmt.Errorf("decode hosts file %s: %w", path, err)
	}
	rules.Direct = normalize(rules.Direct)
	rules.Scrape = normalize(rules.Scrape)
	if len(rules.Direct) == 0 && len(rules.Scrape) == 0 {
		return Rules{}, errors.New("hosts file lists no host fragments")
	}
	return rules, nil
}

// Hosts returns every fragment for user-facing hints.
func (r Rules) Hosts() []string {
	out := make([]string, 0, len(r.Direct)+len(r.Scrape))
	out = append(out, r.Direct...)
	return append(out, r.Scrape...)
}

// Classifier applies Rules to message text.
type Classifier struct {
	rules Rules
}

// New creates a Classifier.
func New(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Classify inspects raw message text. It performs no I/O.
func (c *Classifier) Classify(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Decision: Rejected}
	}
	if frag, ok := firstContained(text, c.rules.Direct); ok {
		return Result{Decision: DirectMedia, URL: linkContaining(text, frag)}
	}
	if frag, ok := firstContained(text, c.rules.Scrape); ok {
		return Result{Decision: NeedsScrape, URL: linkContaining(text, frag)}
	}
	return Result{Decision: Rejected}
}

func firstContained(text string, fragments []string) (string, bool) {
	for _, frag := range fragments {
		if frag != "" && strings.Contains(strings.ToLower(text), frag) {
			return frag, true
		}
	}
	return "", false
}

// linkContaining picks the token holding frag, preferring one that starts with a URL scheme.
// Without any such token it returns the whole text.
func linkContaining(text, frag string) string {
	fields := strings.Fields(text)
	for _, field := range fields {
		lower := strings.ToLower(field)
		if (strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) && strings.Contains(lower, frag) {
			return field
		}
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), frag) {
			return field
		}
	}
	return text
}

func normalize(in []string) []string {
	out := in[:0]
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
