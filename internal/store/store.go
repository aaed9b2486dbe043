// Package store provides a SQLite-backed manifest of ingested documents.
// Each row records one ingestion run: the collection it produced, the
// source file or URL, and the chunk count. The manifest backs the
// `docchat collections` CLI command and lets the ingest pipeline report
// what a collection was built from.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Ingestion is a single recorded ingestion run.
type Ingestion struct {
	// Collection is the vector collection the run produced.
	Collection string
	// Source is the file path or URL that was ingested.
	Source string
	// Chunks is the number of chunks upserted.
	Chunks int
	// IngestedAt is when the run was recorded.
	IngestedAt time.Time
}

// ManifestStore persists and queries ingestion records.
// Implementations must be safe for concurrent use.
type ManifestStore interface {
	// Record persists one ingestion run, replacing any prior record for
	// the same collection and source.
	Record(ctx context.Context, collection, source string, chunks int) error
	// Collections returns the distinct collection names, newest first.
	Collections(ctx context.Context) ([]string, error)
	// Sources returns the recorded runs for one collection, newest first.
	Sources(ctx context.Context, collection string) ([]Ingestion, error)
	// Forget removes all records for a collection (used after a drop).
	Forget(ctx context.Context, collection string) error
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a ManifestStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the ingest manifest database.
// It resolves to ~/.docchat/manifest.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".docchat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "manifest.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingestions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    collection   TEXT    NOT NULL,
    source       TEXT    NOT NULL,
    chunks       INTEGER NOT NULL,
    ingested_at  INTEGER NOT NULL,  -- Unix timestamp (seconds)
    UNIQUE (collection, source)
);
CREATE INDEX IF NOT EXISTS idx_ingestions_collection
    ON ingestions (collection, ingested_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Record persists one ingestion run. A re-ingest of the same source into
// the same collection overwrites the earlier row.
func (s *SQLiteStore) Record(ctx context.Context, collection, source string, chunks int) error {
	const q = `
INSERT INTO ingestions (collection, source, chunks, ingested_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (collection, source) DO UPDATE SET
    chunks = excluded.chunks,
    ingested_at = excluded.ingested_at`
	if _, err := s.db.ExecContext(ctx, q, collection, source, chunks, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: record: %w", err)
	}
	return nil
}

// Collections returns the distinct collection names, most recently
// ingested first.
func (s *SQLiteStore) Collections(ctx context.Context) ([]string, error) {
	const q = `
SELECT collection
FROM   ingestions
GROUP  BY collection
ORDER  BY MAX(ingested_at) DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: collections scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: collections rows: %w", err)
	}
	return names, nil
}

// Sources returns the recorded runs for one collection, newest first.
func (s *SQLiteStore) Sources(ctx context.Context, collection string) ([]Ingestion, error) {
	const q = `
SELECT collection, source, chunks, ingested_at
FROM   ingestions
WHERE  collection = ?
ORDER  BY ingested_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, collection)
	if err != nil {
		return nil, fmt.Errorf("store: sources: %w", err)
	}
	defer rows.Close()

	var runs []Ingestion
	for rows.Next() {
		var run Ingestion
		var ts int64
		if err := rows.Scan(&run.Collection, &run.Source, &run.Chunks, &ts); err != nil {
			return nil, fmt.Errorf("store: sources scan: %w", err)
		}
		run.IngestedAt = time.Unix(ts, 0)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: sources rows: %w", err)
	}
	return runs, nil
}

// Forget removes all records for a collection.
func (s *SQLiteStore) Forget(ctx context.Context, collection string) error {
	const q = `DELETE FROM ingestions WHERE collection = ?`
	if _, err := s.db.ExecContext(ctx, q, collection); err != nil {
		return fmt.Errorf("store: forget: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
