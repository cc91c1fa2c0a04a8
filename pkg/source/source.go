package source

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// Kind identifies the parsing strategy family of a source.
type Kind string

const (
	KindRSS  Kind = "rss"
	KindHTML Kind = "html"
)

// Article is the normalized record every adapter produces, regardless of kind.
// It is immutable once returned by an adapter.
type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Summary     string     `json:"summary,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Section     string     `json:"section"`
	ImageURL    string     `json:"image_url,omitempty"`
	SourceName  string     `json:"source_name"`
}

// Adapter turns one raw payload into zero or more normalized articles.
// Parsing the same payload twice must yield identical article lists.
type Adapter interface {
	Kind() Kind
	Parse(payload []byte) ([]Article, error)
}

// Fingerprint returns the deterministic identity of an article. Two fetches
// of the same underlying item produce the same fingerprint.
func Fingerprint(title, link string) string {
	sum := sha256.Sum256([]byte(title + "\n" + link))
	return hex.EncodeToString(sum[:])[:16]
}

const maxSummaryRunes = 300

var (
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// cleanSummary strips HTML tags, collapses whitespace and caps the length.
func cleanSummary(raw string) string {
	s := tagRe.ReplaceAllString(raw, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > maxSummaryRunes {
		s = strings.TrimSpace(string(runes[:maxSummaryRunes])) + "..."
	}
	return s
}
