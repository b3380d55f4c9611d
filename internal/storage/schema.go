package storage

// schemaStatements are portable between SQLite and PostgreSQL. Timestamps
// are stored as Unix milliseconds.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY NOT NULL,
		title TEXT,
		first_seen BIGINT NOT NULL,
		last_visited BIGINT NOT NULL,
		outlink_count INTEGER NOT NULL DEFAULT 0,
		hits INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_last_visited ON pages(last_visited)`,

	// Term vectors, one row per stemmed term
	`CREATE TABLE IF NOT EXISTS page_terms (
		url TEXT NOT NULL REFERENCES pages(url) ON DELETE CASCADE,
		term TEXT NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (url, term)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_page_terms_term ON page_terms(term)`,

	`CREATE TABLE IF NOT EXISTS page_content (
		url TEXT PRIMARY KEY NOT NULL REFERENCES pages(url) ON DELETE CASCADE,
		content TEXT NOT NULL
	)`,

	// Crawl meta table stores metadata as key-value pairs
	`CREATE TABLE IF NOT EXISTS crawl_meta (
		key TEXT PRIMARY KEY NOT NULL,
		value TEXT NOT NULL
	)`,
}

// sqlitePragmas tune SQLite for a single writer shared by many workers.
var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA cache_size = -64000", // 64MB cache
	"PRAGMA temp_store = MEMORY",
	"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
}
