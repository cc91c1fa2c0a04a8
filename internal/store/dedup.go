package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/al-batol/news-bot/internal/logger"
	"github.com/al-batol/news-bot/pkg/source"
)

const defaultMaxEntries = 1000

// DedupRecord marks an article as delivered. Created only when a delivery
// succeeds, never on mere sighting, and immutable afterwards.
type DedupRecord struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Link                string     `json:"link"`
	FirstSeenAt         time.Time  `json:"first_seen_at"`
	LastSourceTimestamp *time.Time `json:"last_source_timestamp,omitempty"`
}

type dedupSnapshot struct {
	Seen        map[string]DedupRecord `json:"seen"`
	LastUpdated time.Time              `json:"last_updated"`
}

// DedupStore is the persisted set of delivered article ids. All poll loops
// share one instance; access is serialized with a mutex. The on-disk form is
// a single indented JSON snapshot, with the previous version kept as
// <path>.backup before each overwrite.
type DedupStore struct {
	mu         sync.Mutex
	path       string
	maxEntries int
	seen       map[string]DedupRecord
	now        func() time.Time
}

// NewDedupStore loads the snapshot at path. A missing or corrupt file yields
// an empty store; load errors are never fatal, so a damaged snapshot costs
// re-deliveries rather than refusing to start.
func NewDedupStore(path string, maxEntries int) *DedupStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	s := &DedupStore{
		path:       path,
		maxEntries: maxEntries,
		seen:       make(map[string]DedupRecord),
		now:        time.Now,
	}
	s.load()
	return s
}

func (s *DedupStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Log.WithField("path", s.path).WithError(err).
				Warn("failed to read dedup snapshot, starting empty")
		}
		return
	}

	var snap dedupSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Log.WithField("path", s.path).WithError(err).
			Warn("corrupt dedup snapshot, starting empty")
		return
	}
	if snap.Seen != nil {
		s.seen = snap.Seen
	}
	logger.Log.WithFields(map[string]any{
		"path":  s.path,
		"count": len(s.seen),
	}).Info("loaded dedup snapshot")
}

// Seen reports whether the article id has already been delivered.
func (s *DedupStore) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// Len returns the current record count.
func (s *DedupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Records returns a copy of all records, newest firstSeenAt first.
func (s *DedupStore) Records() []DedupRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DedupRecord, 0, len(s.seen))
	for _, rec := range s.seen {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FirstSeenAt.After(out[j].FirstSeenAt)
	})
	return out
}

// Commit records a delivered article, evicts past the size bound and writes
// the snapshot. A snapshot write failure is logged; the in-memory state stays
// authoritative until the next successful save.
func (s *DedupStore) Commit(a source.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[a.ID]; !ok {
		s.seen[a.ID] = DedupRecord{
			ID:                  a.ID,
			Title:               a.Title,
			Link:                a.Link,
			FirstSeenAt:         s.now().UTC(),
			LastSourceTimestamp: a.PublishedAt,
		}
	}
	s.evict()

	if err := s.save(); err != nil {
		logger.Log.WithField("path", s.path).WithError(err).
			Error("failed to write dedup snapshot")
	}
}

// Flush writes the current state, used on shutdown.
func (s *DedupStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// evict drops the oldest firstSeenAt records until the bound holds.
// Caller holds s.mu.
func (s *DedupStore) evict() {
	if len(s.seen) <= s.maxEntries {
		return
	}

	recs := make([]DedupRecord, 0, len(s.seen))
	for _, rec := range s.seen {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].FirstSeenAt.Before(recs[j].FirstSeenAt)
	})

	excess := len(recs) - s.maxEntries
	for _, rec := range recs[:excess] {
		delete(s.seen, rec.ID)
	}
	logger.Log.WithField("evicted", excess).Debug("dedup store eviction")
}

// save writes the snapshot atomically: keep the previous file as .backup,
// write to a temp file, then rename into place. Caller holds s.mu.
func (s *DedupStore) save() error {
	snap := dedupSnapshot{Seen: s.seen, LastUpdated: s.now().UTC()}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dedup snapshot: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.path+".backup"); err != nil {
			return fmt.Errorf("rotate snapshot backup: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
