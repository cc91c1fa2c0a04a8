package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/al-batol/news-bot/pkg/source"
)

func testArticle(i int) source.Article {
	title := fmt.Sprintf("Article %d", i)
	link := fmt.Sprintf("https://example.com/%d", i)
	return source.Article{
		ID:    source.Fingerprint(title, link),
		Title: title,
		Link:  link,
	}
}

func TestDedupCommitAndSeen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	s := NewDedupStore(path, 100)

	a := testArticle(1)
	require.False(t, s.Seen(a.ID))

	s.Commit(a)
	require.True(t, s.Seen(a.ID))
	require.Equal(t, 1, s.Len())

	// Snapshot is human-inspectable JSON on disk.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), a.ID)
	require.Contains(t, string(data), "last_updated")
}

func TestDedupReloadFromSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")

	s := NewDedupStore(path, 100)
	a := testArticle(1)
	s.Commit(a)

	reloaded := NewDedupStore(path, 100)
	require.True(t, reloaded.Seen(a.ID))
	require.Equal(t, 1, reloaded.Len())
}

func TestDedupCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewDedupStore(path, 100)
	require.Zero(t, s.Len())

	// The store still works after a corrupt load.
	a := testArticle(1)
	s.Commit(a)
	require.True(t, s.Seen(a.ID))
}

func TestDedupBackupKeptOnOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	s := NewDedupStore(path, 100)

	s.Commit(testArticle(1))
	s.Commit(testArticle(2))

	backup, err := os.ReadFile(path + ".backup")
	require.NoError(t, err)
	current, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEqual(t, string(backup), string(current))
}

func TestDedupEvictionKeepsNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	s := NewDedupStore(path, 100)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 0; i < 150; i++ {
		s.Commit(testArticle(i))
	}

	require.Equal(t, 100, s.Len())
	for i := 0; i < 50; i++ {
		require.False(t, s.Seen(testArticle(i).ID), "oldest records must be evicted")
	}
	for i := 50; i < 150; i++ {
		require.True(t, s.Seen(testArticle(i).ID), "newest records must survive")
	}
}

func TestDedupRecordsNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	s := NewDedupStore(path, 100)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 0; i < 3; i++ {
		s.Commit(testArticle(i))
	}

	recs := s.Records()
	require.Len(t, recs, 3)
	require.Equal(t, testArticle(2).ID, recs[0].ID)
	require.Equal(t, testArticle(0).ID, recs[2].ID)
}
