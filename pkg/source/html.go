package source

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// defaultBlockSelectors is the fallback chain tried against scraped pages.
// Markup changes break one selector at a time, rarely all of them.
var defaultBlockSelectors = []string{
	"article",
	"div[data-test='article-item']",
	"div.news-item",
	"li.article-item",
	"div[class*='article']",
}

// minBlockMatches is the smallest match count a selector must yield before
// it is trusted; one or two hits are usually navigation noise.
const minBlockMatches = 2

// HTMLAdapter extracts articles from scraped HTML pages.
type HTMLAdapter struct {
	sourceName string
	section    string
	baseURL    *url.URL
	selectors  []string
}

// NewHTMLAdapter creates an adapter for a scraped page. Custom selectors
// override the default fallback chain; baseURL resolves relative links.
func NewHTMLAdapter(sourceName, section, baseURL string, selectors []string) (*HTMLAdapter, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %s: %w", baseURL, err)
	}
	if len(selectors) == 0 {
		selectors = defaultBlockSelectors
	}
	return &HTMLAdapter{
		sourceName: sourceName,
		section:    section,
		baseURL:    base,
		selectors:  selectors,
	}, nil
}

func (a *HTMLAdapter) Kind() Kind { return KindHTML }

// Parse walks the selector chain until one yields enough candidate blocks,
// then extracts an article per block. Blocks without a usable title and
// link are skipped; missing summary or image is not an error.
func (a *HTMLAdapter) Parse(payload []byte) ([]Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", a.sourceName, err)
	}

	var blocks *goquery.Selection
	for _, sel := range a.selectors {
		found := doc.Find(sel)
		if found.Length() > minBlockMatches {
			blocks = found
			break
		}
	}
	if blocks == nil {
		return nil, nil
	}

	var articles []Article
	seen := make(map[string]struct{})
	blocks.Each(func(_ int, block *goquery.Selection) {
		art, ok := a.extractBlock(block)
		if !ok {
			return
		}
		// Pages repeat the same story in multiple blocks.
		if _, dup := seen[art.ID]; dup {
			return
		}
		seen[art.ID] = struct{}{}
		articles = append(articles, art)
	})

	return articles, nil
}

func (a *HTMLAdapter) extractBlock(block *goquery.Selection) (Article, bool) {
	anchor := block.Find("a[href]").First()
	href, _ := anchor.Attr("href")

	title := strings.TrimSpace(block.Find("h1, h2, h3, h4").First().Text())
	if title == "" {
		title = strings.TrimSpace(anchor.Text())
	}
	if title == "" || href == "" {
		return Article{}, false
	}

	link := a.resolve(href)
	art := Article{
		ID:         Fingerprint(title, link),
		Title:      title,
		Link:       link,
		Section:    a.section,
		SourceName: a.sourceName,
	}

	if p := block.Find("p").First(); p.Length() > 0 {
		art.Summary = cleanSummary(p.Text())
	}
	if src, ok := block.Find("img").First().Attr("src"); ok {
		art.ImageURL = a.resolve(src)
	} else if src, ok := block.Find("img").First().Attr("data-src"); ok {
		art.ImageURL = a.resolve(src)
	}

	return art, true
}

func (a *HTMLAdapter) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return a.baseURL.ResolveReference(ref).String()
}
