package source

import (
	"strings"
	"time"
)

// CryptoKeywords carry double weight in the relevance score.
var CryptoKeywords = []string{
	"bitcoin", "ethereum", "crypto", "cryptocurrency", "blockchain", "defi", "nft",
	"binance", "coinbase", "solana", "cardano", "dogecoin", "ripple", "xrp", "btc", "eth",
	"stablecoin", "altcoin",
}

// FinancialKeywords is the broad markets taxonomy. The filter is intentionally
// permissive: dropping real financial news is worse than passing noise.
var FinancialKeywords = []string{
	"stock", "share", "market", "trading", "investor", "investment", "portfolio", "dividend",
	"earnings", "revenue", "profit", "loss", "ipo", "merger", "acquisition", "buyback",
	"fed", "federal reserve", "interest rate", "inflation", "gdp", "unemployment", "jobs report",
	"consumer price", "ppi", "cpi", "retail sales", "housing", "manufacturing", "recession",
	"dollar", "euro", "yen", "pound", "currency", "forex", "exchange rate",
	"central bank", "monetary policy", "quantitative easing",
	"oil", "crude", "gold", "silver", "copper", "natural gas", "commodity", "opec",
	"nasdaq", "nyse", "dow jones", "s&p 500", "sp500",
	"apple", "tesla", "microsoft", "google", "amazon", "meta", "nvidia", "berkshire",
	"bank", "banking", "credit", "loan", "fund", "finance", "capital", "financial",
	"imf", "world bank", "economic", "economy", "tariff", "trade war",
	"billion", "million", "regulatory", "regulation", "forecast", "guidance",
}

// Filter scores articles against the keyword taxonomy.
type Filter struct {
	crypto    []string
	financial []string
	exclude   []string
}

// NewFilter builds a filter from the default taxonomy plus config extras.
func NewFilter(extraKeywords, excludeKeywords []string) *Filter {
	f := &Filter{
		crypto:    lowerAll(CryptoKeywords),
		financial: lowerAll(append(append([]string{}, FinancialKeywords...), extraKeywords...)),
		exclude:   lowerAll(excludeKeywords),
	}
	return f
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// Score returns the weighted keyword match count: crypto terms count twice.
func (f *Filter) Score(title, summary string) int {
	content := strings.ToLower(title + " " + summary)

	for _, kw := range f.exclude {
		if strings.Contains(content, kw) {
			return 0
		}
	}

	score := 0
	for _, kw := range f.crypto {
		if strings.Contains(content, kw) {
			score += 2
		}
	}
	for _, kw := range f.financial {
		if strings.Contains(content, kw) {
			score++
		}
	}
	return score
}

// Relevant reports whether the article clears the single-match threshold.
func (f *Filter) Relevant(title, summary string) bool {
	return f.Score(title, summary) >= 1
}

// FreshnessPolicy is the declarative per-source-group freshness input.
type FreshnessPolicy struct {
	Enforce    bool
	Default    time.Duration
	PerSection map[string]time.Duration
	FutureSkew time.Duration
}

// Tolerance returns the lookback window for a section.
func (p FreshnessPolicy) Tolerance(section string) time.Duration {
	if d, ok := p.PerSection[strings.ToLower(section)]; ok {
		return d
	}
	return p.Default
}

// Keep is the combined relevance and freshness decision. Articles without a
// parseable publish time always pass freshness: a parsing miss must not
// silently drop valid news.
func (f *Filter) Keep(a Article, policy FreshnessPolicy, now time.Time) bool {
	if !f.Relevant(a.Title, a.Summary) {
		return false
	}
	if !policy.Enforce {
		return true
	}
	if a.PublishedAt == nil {
		return true
	}
	oldest := now.Add(-policy.Tolerance(a.Section))
	newest := now.Add(policy.FutureSkew)
	t := *a.PublishedAt
	return !t.Before(oldest) && !t.After(newest)
}
