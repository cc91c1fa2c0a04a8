package store

const schema = `
CREATE TABLE IF NOT EXISTS delivered_articles (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    link         TEXT NOT NULL DEFAULT '',
    section      TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL DEFAULT '',
    delivered_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_delivered_at ON delivered_articles(delivered_at);
CREATE INDEX IF NOT EXISTS idx_delivered_section ON delivered_articles(section);
`
