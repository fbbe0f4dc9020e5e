// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline feeds files from disk through the extraction engine. It
// resolves source globs, reads files into records, processes them
// concurrently and reports per-file status and a batch summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/blockhead/internal/extract"
	"github.com/pdiddy/blockhead/pkg/types"
)

const defaultConcurrency = 4

// Processor handles one record. *extract.Engine implements it.
type Processor interface {
	Process(ctx context.Context, rec types.Record, sink extract.Sink) error
}

// Options tunes a batch run.
type Options struct {
	// Concurrency bounds the number of files processed at once.
	Concurrency int
}

// Status is the outcome of one file.
type Status string

const (
	StatusExtracted Status = "extracted"
	StatusPassed    Status = "passed"
	StatusEmpty     Status = "empty"
	StatusFailed    Status = "failed"
)

// Summary holds the outcome of a batch run.
type Summary struct {
	Extracted int
	Passed    int
	Empty     int
	Failed    int
	Artifacts int
}

// Total returns the number of files processed.
func (s Summary) Total() int {
	return s.Extracted + s.Passed + s.Empty + s.Failed
}

// HasFailures reports whether any file failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// LoadRecord reads path into a record. Directories become null records.
func LoadRecord(path string) (types.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.Record{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return types.Record{Path: path, Stat: info}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Record{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if data == nil {
		data = []byte{}
	}
	return types.Record{Path: path, Contents: data, Stat: info}, nil
}

// ProcessFile loads and processes one file, returning its status and the
// number of artifacts the sink accepted.
func ProcessFile(ctx context.Context, p Processor, path string, sink extract.Sink) (Status, int, error) {
	rec, err := LoadRecord(path)
	if err != nil {
		return StatusFailed, 0, err
	}

	cs := &countingSink{next: sink}
	if err := p.Process(ctx, rec, cs); err != nil {
		return StatusFailed, int(cs.accepted.Load()), err
	}

	n := int(cs.accepted.Load())
	switch {
	case rec.IsNull():
		return StatusPassed, n, nil
	case n == 0:
		return StatusEmpty, n, nil
	default:
		return StatusExtracted, n, nil
	}
}

// Run processes paths concurrently, printing one status line per file to w
// and a summary at the end. Per-file failures are counted, not returned;
// the error is non-nil only when ctx ends the run early.
func Run(ctx context.Context, p Processor, paths []string, sink extract.Sink, opts Options, w io.Writer) (Summary, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	var (
		mu      sync.Mutex
		summary Summary
	)
	report := func(path string, st Status, n int, err error) {
		mu.Lock()
		defer mu.Unlock()
		summary.Artifacts += n
		switch st {
		case StatusExtracted:
			summary.Extracted++
			fmt.Fprintf(w, "extracted: %s (%d artifacts)\n", path, n)
		case StatusPassed:
			summary.Passed++
			fmt.Fprintf(w, "passed:    %s\n", path)
		case StatusEmpty:
			summary.Empty++
			fmt.Fprintf(w, "empty:     %s\n", path)
		case StatusFailed:
			summary.Failed++
			fmt.Fprintf(w, "failed:    %s (%v)\n", path, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			st, n, err := ProcessFile(gctx, p, path, sink)
			if err != nil && gctx.Err() != nil && errors.Is(err, gctx.Err()) {
				return err
			}
			report(path, st, n, err)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	fmt.Fprintf(w, "\nBatch summary: %d extracted, %d passed, %d empty, %d failed (total: %d, artifacts: %d)\n",
		summary.Extracted, summary.Passed, summary.Empty, summary.Failed, summary.Total(), summary.Artifacts)
	return summary, err
}

// countingSink counts accepted pushes on the way to next.
type countingSink struct {
	next     extract.Sink
	accepted atomic.Int64
}

func (c *countingSink) Push(ctx context.Context, a types.Artifact) (bool, error) {
	ok, err := c.next.Push(ctx, a)
	if ok && err == nil {
		c.accepted.Add(1)
	}
	return ok, err
}
