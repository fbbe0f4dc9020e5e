// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists extracted artifacts in SQLite with a full-text
// index over their contents. A Store is a sink.Writer, so it can sit behind
// the engine's queue next to (or instead of) an output directory.
//
// Full-text search needs the sqlite_fts5 build tag on go-sqlite3.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/blockhead/pkg/types"
)

// ErrNotFound is returned by Get for unknown artifact paths.
var ErrNotFound = errors.New("artifact not found")

const defaultMaxResults = 50

// Store manages the artifact database.
type Store struct {
	db         *sql.DB
	maxResults int
	now        func() time.Time
}

// Open opens or creates the artifact database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; the batch runner writes from several goroutines.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, maxResults: defaultMaxResults, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			block TEXT,
			line_offset INTEGER,
			size INTEGER,
			contents TEXT NOT NULL,
			extracted_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_source ON artifacts(source)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_block ON artifacts(block)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='artifacts_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE artifacts_fts USING fts5(contents, content=artifacts, content_rowid=rowid)`,
		`CREATE TRIGGER artifacts_ai AFTER INSERT ON artifacts BEGIN
			INSERT INTO artifacts_fts(rowid, contents) VALUES (new.rowid, new.contents);
		END`,
		`CREATE TRIGGER artifacts_ad AFTER DELETE ON artifacts BEGIN
			INSERT INTO artifacts_fts(artifacts_fts, rowid, contents) VALUES('delete', old.rowid, old.contents);
		END`,
		`CREATE TRIGGER artifacts_au AFTER UPDATE ON artifacts BEGIN
			INSERT INTO artifacts_fts(artifacts_fts, rowid, contents) VALUES('delete', old.rowid, old.contents);
			INSERT INTO artifacts_fts(rowid, contents) VALUES (new.rowid, new.contents);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// Write upserts one artifact keyed by its path. Null records carry no
// contents and are skipped.
func (s *Store) Write(ctx context.Context, a types.Artifact) error {
	if a.Contents == nil {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (path, source, block, line_offset, size, contents, extracted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			source=excluded.source, block=excluded.block, line_offset=excluded.line_offset,
			size=excluded.size, contents=excluded.contents, extracted_at=excluded.extracted_at`,
		a.Path, a.Source, a.Block, a.LineOffset, len(a.Contents), string(a.Contents),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("storing artifact %s: %w", a.Path, err)
	}
	return nil
}

// DeleteSource removes every artifact extracted from source and returns
// how many were removed.
func (s *Store) DeleteSource(ctx context.Context, source string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE source = ?`, source)
	if err != nil {
		return 0, fmt.Errorf("deleting artifacts of %s: %w", source, err)
	}
	return res.RowsAffected()
}
