package deliver

import (
	"strings"

	"github.com/al-batol/news-bot/pkg/source"
)

// assetFlags maps content keywords to marker emoji; crypto assets are
// checked before countries and commodities.
var assetFlags = []struct {
	keyword string
	flag    string
}{
	{"bitcoin", "₿"}, {"btc", "₿"},
	{"ethereum", "🔷"}, {"eth", "🔷"},
	{"crypto", "🪙"}, {"blockchain", "⛓️"}, {"defi", "🏗️"},
	{"binance", "🔸"}, {"coinbase", "🔵"},
	{"federal reserve", "🏦"}, {"fed", "🏦"},
	{"united states", "🇺🇸"}, {"nasdaq", "🇺🇸"}, {"nyse", "🇺🇸"}, {"dow", "🇺🇸"},
	{"china", "🇨🇳"}, {"europe", "🇪🇺"}, {"uk", "🇬🇧"}, {"japan", "🇯🇵"},
	{"oil", "🛢️"}, {"gold", "🥇"}, {"silver", "🥈"},
}

var sectionEmoji = map[string]string{
	"crypto":      "₿",
	"forex":       "💱",
	"stocks":      "📈",
	"economic":    "🏛️",
	"commodities": "🛢️",
	"breaking":    "🚨",
}

// Formatter renders an article into the message text posted to the channel.
type Formatter struct {
	// FollowTag is appended as a footer when set, e.g. "@my_channel".
	FollowTag string
	// Arabic switches the breaking-news prefix and footer language.
	Arabic bool
}

// Format builds the message body. The title is the translated title when
// translation succeeded, otherwise the original.
func (f Formatter) Format(a source.Article, title string) string {
	var b strings.Builder

	prefix := "BREAKING"
	follow := "Follow us: "
	if f.Arabic {
		prefix = "عاجل"
		follow = "تابعنا لكل جديد: "
	}

	b.WriteString("🚨 ")
	if emoji := sectionEmoji[strings.ToLower(a.Section)]; emoji != "" {
		b.WriteString(emoji)
		b.WriteString(" ")
	}
	b.WriteString(flagFor(a.Title, a.Summary))
	b.WriteString(" ")
	b.WriteString(prefix)
	b.WriteString(": ")
	b.WriteString(title)
	b.WriteString("\n")

	if a.Summary != "" {
		b.WriteString("\n📝 ")
		b.WriteString(a.Summary)
		b.WriteString("\n")
	}

	if f.FollowTag != "" {
		b.WriteString("\n📈 ")
		b.WriteString(follow)
		b.WriteString(f.FollowTag)
	}

	return b.String()
}

func flagFor(title, summary string) string {
	content := strings.ToLower(title + " " + summary)
	for _, af := range assetFlags {
		if strings.Contains(content, af.keyword) {
			return af.flag
		}
	}
	return "🪙"
}
