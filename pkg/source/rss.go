package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// RSSAdapter parses RSS/Atom feed payloads into articles.
type RSSAdapter struct {
	sourceName string
	section    string
	parser     *gofeed.Parser
}

// NewRSSAdapter creates an adapter for a named feed.
func NewRSSAdapter(sourceName, section string) *RSSAdapter {
	return &RSSAdapter{
		sourceName: sourceName,
		section:    section,
		parser:     gofeed.NewParser(),
	}
}

func (a *RSSAdapter) Kind() Kind { return KindRSS }

// Parse extracts articles from a feed document. Entries missing a title or
// link are dropped; a malformed entry never aborts its siblings.
func (a *RSSAdapter) Parse(payload []byte) ([]Article, error) {
	feed, err := a.parser.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", a.sourceName, err)
	}

	var articles []Article
	for _, entry := range feed.Items {
		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if link == "" && len(entry.Links) > 0 {
			link = strings.TrimSpace(entry.Links[0])
		}
		if title == "" || link == "" {
			continue
		}

		art := Article{
			ID:         Fingerprint(title, link),
			Title:      title,
			Link:       link,
			Section:    a.section,
			SourceName: a.sourceName,
			ImageURL:   extractEntryImage(entry),
		}

		if entry.PublishedParsed != nil {
			t := entry.PublishedParsed.UTC()
			art.PublishedAt = &t
		} else if entry.UpdatedParsed != nil {
			t := entry.UpdatedParsed.UTC()
			art.PublishedAt = &t
		}

		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}
		art.Summary = cleanSummary(summary)

		articles = append(articles, art)
	}

	return articles, nil
}

// extractEntryImage checks the three places feeds hide images, in preference
// order: media extension, enclosure, then an <img> inside the entry HTML.
func extractEntryImage(entry *gofeed.Item) string {
	for _, name := range []string{"content", "thumbnail"} {
		for _, ext := range entry.Extensions["media"][name] {
			url := ext.Attrs["url"]
			if url == "" {
				continue
			}
			mediaType := strings.ToLower(ext.Attrs["type"])
			medium := strings.ToLower(ext.Attrs["medium"])
			if name == "thumbnail" || strings.HasPrefix(mediaType, "image") || medium == "image" {
				return url
			}
		}
	}

	for _, enc := range entry.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enc.Type), "image") {
			return enc.URL
		}
	}

	for _, html := range []string{entry.Content, entry.Description} {
		if html == "" || !strings.Contains(html, "<img") {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			continue
		}
		if src, ok := doc.Find("img").First().Attr("src"); ok && src != "" {
			return src
		}
	}

	return ""
}
