package fetch

import (
	"strings"
	"time"
)

// Strategy is one way of asking a site for a page. Strategies differ in
// headers, timeout and optionally the endpoint itself; the chain tries them
// in priority order.
type Strategy struct {
	Name    string
	Timeout time.Duration
	Headers map[string]string
	// Rewrite maps the canonical URL to an alternate endpoint (e.g. the
	// mobile site). Nil means fetch the URL as given.
	Rewrite func(url string) string
}

// DesktopStrategy impersonates a regular desktop browser.
func DesktopStrategy() Strategy {
	return Strategy{
		Name:    "desktop",
		Timeout: 15 * time.Second,
		Headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Connection":      "keep-alive",
		},
	}
}

// MobileStrategy hits the m. subdomain with a phone user agent. Mobile
// endpoints often skip the bot checks the desktop site runs.
func MobileStrategy() Strategy {
	return Strategy{
		Name:    "mobile",
		Timeout: 12 * time.Second,
		Headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		Rewrite: func(url string) string {
			return strings.Replace(url, "://www.", "://m.", 1)
		},
	}
}

// CrawlerStrategy identifies as a search engine crawler, which some sites
// whitelist.
func CrawlerStrategy() Strategy {
	return Strategy{
		Name:    "crawler",
		Timeout: 10 * time.Second,
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			"Accept":     "*/*",
		},
	}
}

// FeedStrategy asks for feed content types with a plain browser UA.
func FeedStrategy() Strategy {
	return Strategy{
		Name:    "feed",
		Timeout: 15 * time.Second,
		Headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Accept":          "application/rss+xml, application/xml, text/xml, application/atom+xml",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
		},
	}
}

// DefaultRSSStrategies is the chain used for feed sources.
func DefaultRSSStrategies() []Strategy {
	return []Strategy{FeedStrategy(), DesktopStrategy(), CrawlerStrategy()}
}

// DefaultHTMLStrategies is the chain used for scraped sources.
func DefaultHTMLStrategies() []Strategy {
	return []Strategy{DesktopStrategy(), MobileStrategy(), CrawlerStrategy()}
}
