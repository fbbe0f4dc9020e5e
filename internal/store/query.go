// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// QueryOptions filters List results.
type QueryOptions struct {
	// Query is an FTS5 match expression over artifact contents.
	Query string
	// Source limits results to one source file.
	Source string
	// Block limits results to one block id.
	Block string
	// MaxResults limits the result count. Zero uses the store default.
	MaxResults int
}

// Entry is one stored artifact.
type Entry struct {
	Path        string    `json:"path" yaml:"path"`
	Source      string    `json:"source" yaml:"source"`
	Block       string    `json:"block,omitempty" yaml:"block,omitempty"`
	LineOffset  int       `json:"line_offset" yaml:"line_offset"`
	Size        int       `json:"size" yaml:"size"`
	Contents    string    `json:"contents" yaml:"contents"`
	ExtractedAt time.Time `json:"extracted_at" yaml:"extracted_at"`
}

// List returns stored artifacts. Full-text queries are ranked by
// relevance; otherwise results are ordered by source and line.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT a.path, a.source, a.block, a.line_offset, a.size, a.contents, a.extracted_at
			FROM artifacts_fts
			JOIN artifacts a ON a.rowid = artifacts_fts.rowid
			WHERE artifacts_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT a.path, a.source, a.block, a.line_offset, a.size, a.contents, a.extracted_at
			FROM artifacts a
			WHERE 1=1`)
	}

	if opts.Source != "" {
		qb.WriteString(` AND a.source = ?`)
		args = append(args, opts.Source)
	}
	if opts.Block != "" {
		qb.WriteString(` AND a.block = ?`)
		args = append(args, opts.Block)
	}

	if useFTS {
		qb.WriteString(` ORDER BY artifacts_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY a.source, a.line_offset, a.path`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the artifact stored at path.
func (s *Store) Get(ctx context.Context, path string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT path, source, block, line_offset, size, contents, extracted_at
		 FROM artifacts WHERE path = ?`, path)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e           Entry
		block       sql.NullString
		lineOffset  sql.NullInt64
		size        sql.NullInt64
		extractedAt sql.NullString
	)
	if err := row.Scan(&e.Path, &e.Source, &block, &lineOffset, &size, &e.Contents, &extractedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scanning row: %w", err)
	}
	e.Block = block.String
	e.LineOffset = int(lineOffset.Int64)
	e.Size = int(size.Int64)
	if extractedAt.Valid {
		e.ExtractedAt, _ = time.Parse(time.RFC3339Nano, extractedAt.String)
	}
	return e, nil
}
