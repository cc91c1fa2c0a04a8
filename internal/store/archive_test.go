package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/al-batol/news-bot/pkg/source"
)

func testArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := NewArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchiveInsertAndRecent(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Insert(ctx, testArticle(i)))
	}

	recent, err := a.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
}

func TestArchiveInsertIdempotent(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()

	art := testArticle(1)
	require.NoError(t, a.Insert(ctx, art))
	require.NoError(t, a.Insert(ctx, art))

	recent, err := a.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, art.Title, recent[0].Title)
}

func TestArchiveCountBySection(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()

	crypto := testArticle(1)
	crypto.Section = "crypto"
	stocks := testArticle(2)
	stocks.Section = "stocks"
	crypto2 := testArticle(3)
	crypto2.Section = "crypto"

	for _, art := range []source.Article{crypto, stocks, crypto2} {
		require.NoError(t, a.Insert(ctx, art))
	}

	counts, err := a.CountBySection(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, counts["crypto"])
	require.Equal(t, 1, counts["stocks"])
}
