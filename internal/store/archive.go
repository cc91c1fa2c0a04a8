package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/al-batol/news-bot/pkg/source"
)

// DeliveredArticle is one row in the delivery archive.
type DeliveredArticle struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Link        string    `db:"link" json:"link"`
	Section     string    `db:"section" json:"section"`
	Source      string    `db:"source" json:"source"`
	DeliveredAt time.Time `db:"delivered_at" json:"delivered_at"`
}

// Archive records successfully delivered articles in SQLite. Unlike the
// dedup snapshot it is append-only history, queried by the recent command
// and the HTTP API.
type Archive struct {
	db *sqlx.DB
}

// NewArchive opens the archive database and runs migrations.
func NewArchive(path string) (*Archive, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Insert records one delivery. Re-delivering the same id updates the
// delivery timestamp rather than erroring.
func (a *Archive) Insert(ctx context.Context, art source.Article) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO delivered_articles (id, title, link, section, source, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			delivered_at = excluded.delivered_at
	`, art.ID, art.Title, art.Link, art.Section, art.SourceName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert delivered article %s: %w", art.ID, err)
	}
	return nil
}

// Recent returns the most recently delivered articles, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]DeliveredArticle, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []DeliveredArticle
	err := a.db.SelectContext(ctx, &out,
		"SELECT * FROM delivered_articles ORDER BY delivered_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list delivered articles: %w", err)
	}
	return out, nil
}

// CountBySection returns delivery totals per section.
func (a *Archive) CountBySection(ctx context.Context) (map[string]int, error) {
	rows, err := a.db.QueryxContext(ctx,
		"SELECT section, COUNT(*) as cnt FROM delivered_articles GROUP BY section")
	if err != nil {
		return nil, fmt.Errorf("count delivered by section: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var section string
		var cnt int
		if err := rows.Scan(&section, &cnt); err != nil {
			return nil, err
		}
		counts[section] = cnt
	}
	return counts, nil
}
