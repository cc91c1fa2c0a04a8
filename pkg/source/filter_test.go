package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFilterRelevance(t *testing.T) {
	f := NewFilter(nil, nil)

	cases := []struct {
		name    string
		title   string
		summary string
		want    bool
	}{
		{"crypto headline", "Bitcoin breaks $100k", "", true},
		{"macro headline", "Fed signals rate cut in September", "", true},
		{"keyword in summary only", "Morning briefing", "Gold futures slipped overnight", true},
		{"irrelevant", "Local team wins championship", "fans celebrate downtown", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, f.Relevant(tc.title, tc.summary))
		})
	}
}

func TestFilterCryptoWeight(t *testing.T) {
	f := NewFilter(nil, nil)
	require.Equal(t, 2, f.Score("bitcoin", ""))
	require.Equal(t, 1, f.Score("earnings", ""))
}

func TestFilterExcludeWins(t *testing.T) {
	f := NewFilter(nil, []string{"sponsored"})
	require.False(t, f.Relevant("Sponsored: bitcoin trading course", ""))
}

func TestFilterExtraKeywords(t *testing.T) {
	f := NewFilter([]string{"lithium"}, nil)
	require.True(t, f.Relevant("Lithium miners rally", ""))
}

func TestKeepFreshness(t *testing.T) {
	f := NewFilter(nil, nil)
	now := time.Date(2025, 8, 5, 12, 0, 0, 0, time.UTC)
	policy := FreshnessPolicy{
		Enforce:    true,
		Default:    3 * time.Hour,
		PerSection: map[string]time.Duration{"crypto": 4 * time.Hour},
		FutureSkew: 30 * time.Minute,
	}

	at := func(t time.Time) *time.Time { return &t }

	cases := []struct {
		name    string
		article Article
		want    bool
	}{
		{
			name:    "inside default window",
			article: Article{Title: "market update", Section: "news", PublishedAt: at(now.Add(-2 * time.Hour))},
			want:    true,
		},
		{
			name:    "outside default window",
			article: Article{Title: "market update", Section: "news", PublishedAt: at(now.Add(-5 * time.Hour))},
			want:    false,
		},
		{
			name:    "crypto section gets wider window",
			article: Article{Title: "bitcoin update", Section: "crypto", PublishedAt: at(now.Add(-3*time.Hour - 30*time.Minute))},
			want:    true,
		},
		{
			name:    "slightly future timestamp tolerated",
			article: Article{Title: "market update", Section: "news", PublishedAt: at(now.Add(15 * time.Minute))},
			want:    true,
		},
		{
			name:    "far future timestamp dropped",
			article: Article{Title: "market update", Section: "news", PublishedAt: at(now.Add(2 * time.Hour))},
			want:    false,
		},
		{
			name:    "missing publish time passes",
			article: Article{Title: "market update", Section: "news"},
			want:    true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, f.Keep(tc.article, policy, now))
		})
	}
}

func TestKeepFreshnessNotEnforced(t *testing.T) {
	f := NewFilter(nil, nil)
	now := time.Now().UTC()
	stale := now.Add(-72 * time.Hour)

	a := Article{Title: "oil prices", PublishedAt: &stale}
	require.True(t, f.Keep(a, FreshnessPolicy{Enforce: false}, now))
}
