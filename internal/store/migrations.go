package store

const schema = `
CREATE TABLE IF NOT EXISTS records (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    source             TEXT NOT NULL,
    external_id        TEXT NOT NULL,
    title              TEXT NOT NULL,
    description        TEXT NOT NULL DEFAULT '',
    tags               TEXT NOT NULL DEFAULT '[]',
    published_at       DATETIME NOT NULL,
    collected_at       DATETIME NOT NULL,
    subtitles          TEXT NOT NULL DEFAULT '',
    views              INTEGER NOT NULL DEFAULT 0,
    likes              INTEGER NOT NULL DEFAULT 0,
    comments           INTEGER NOT NULL DEFAULT 0,
    duration_sec       REAL NOT NULL DEFAULT 0,
    aspect_ratio       REAL NOT NULL DEFAULT 0,
    views_per_day      REAL NOT NULL DEFAULT 0,
    views_per_hour     REAL NOT NULL DEFAULT 0,
    engagement_rate    REAL NOT NULL DEFAULT 0,
    like_view_ratio    REAL NOT NULL DEFAULT 0,
    comment_view_ratio REAL NOT NULL DEFAULT 0,
    metrics            TEXT NOT NULL DEFAULT '{}',
    UNIQUE(source, external_id)
);

CREATE INDEX IF NOT EXISTS idx_records_source ON records(source);
CREATE INDEX IF NOT EXISTS idx_records_collected_at ON records(collected_at);
CREATE INDEX IF NOT EXISTS idx_records_published_at ON records(published_at);
CREATE INDEX IF NOT EXISTS idx_records_engagement ON records(engagement_rate);

CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    source          TEXT NOT NULL,
    attempted       INTEGER NOT NULL DEFAULT 0,
    inserted        INTEGER NOT NULL DEFAULT 0,
    duplicates      INTEGER NOT NULL DEFAULT 0,
    failed          INTEGER NOT NULL DEFAULT 0,
    quota_hit       BOOLEAN NOT NULL DEFAULT 0,
    failure_reasons TEXT NOT NULL DEFAULT '[]',
    started_at      DATETIME NOT NULL,
    finished_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
