package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const newsPage = `<!DOCTYPE html>
<html><body>
<div class="story"><a href="/news/1"><h3>Oil prices slide on supply data</h3></a>
  <p>Crude fell 2% after the report.</p>
  <img src="/img/oil.jpg" /></div>
<div class="story"><a href="https://other.example.com/2"><h3>Gold hits record</h3></a></div>
<div class="story"><a href="/news/3"><h3>Dollar steadies</h3></a>
  <p>FX desks saw light volume.</p></div>
</body></html>`

func TestHTMLAdapterSelectorFallback(t *testing.T) {
	// First selector matches nothing, second matches too few blocks to be
	// trusted, third is the real one.
	adapter, err := NewHTMLAdapter("site", "commodities", "https://news.example.com", []string{
		"article.missing",
		"img",
		"div.story",
	})
	require.NoError(t, err)

	articles, err := adapter.Parse([]byte(newsPage))
	require.NoError(t, err)
	require.Len(t, articles, 3)

	require.Equal(t, "Oil prices slide on supply data", articles[0].Title)
	require.Equal(t, "https://news.example.com/news/1", articles[0].Link, "relative link resolved")
	require.Equal(t, "Crude fell 2% after the report.", articles[0].Summary)
	require.Equal(t, "https://news.example.com/img/oil.jpg", articles[0].ImageURL)

	require.Equal(t, "https://other.example.com/2", articles[1].Link, "absolute link untouched")
	require.Empty(t, articles[1].Summary, "missing summary is not an error")
	require.Empty(t, articles[1].ImageURL)
}

func TestHTMLAdapterNoSelectorMatches(t *testing.T) {
	adapter, err := NewHTMLAdapter("site", "news", "https://news.example.com", []string{"div.absent"})
	require.NoError(t, err)

	articles, err := adapter.Parse([]byte(newsPage))
	require.NoError(t, err)
	require.Empty(t, articles)
}

func TestHTMLAdapterIdempotent(t *testing.T) {
	adapter, err := NewHTMLAdapter("site", "news", "https://news.example.com", []string{"div.story"})
	require.NoError(t, err)

	a, err := adapter.Parse([]byte(newsPage))
	require.NoError(t, err)
	b, err := adapter.Parse([]byte(newsPage))
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestHTMLAdapterDeduplicatesRepeatedBlocks(t *testing.T) {
	page := `<html><body>
<div class="story"><a href="/1"><h3>Repeated headline</h3></a></div>
<div class="story"><a href="/1"><h3>Repeated headline</h3></a></div>
<div class="story"><a href="/1"><h3>Repeated headline</h3></a></div>
</body></html>`

	adapter, err := NewHTMLAdapter("site", "news", "https://news.example.com", []string{"div.story"})
	require.NoError(t, err)

	articles, err := adapter.Parse([]byte(page))
	require.NoError(t, err)
	require.Len(t, articles, 1)
}
