package store

const schema = `
CREATE TABLE IF NOT EXISTS topics (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    category    TEXT NOT NULL DEFAULT '',
    openalex_id TEXT,
    impact      REAL NOT NULL DEFAULT 0,
    activity    REAL NOT NULL DEFAULT 0,
    metrics     TEXT NOT NULL DEFAULT '{}',
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL,
    UNIQUE(name)
);

CREATE INDEX IF NOT EXISTS idx_topics_category ON topics(category);
CREATE INDEX IF NOT EXISTS idx_topics_impact ON topics(impact);
CREATE INDEX IF NOT EXISTS idx_topics_activity ON topics(activity);
`
