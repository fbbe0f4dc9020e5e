// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract splits text files into artifacts delimited by HTML-like
// block tags. An Engine holds normalized block definitions and processes one
// file at a time: it scans lines for opening and closing delimiters,
// transforms and names each closed block, and pushes the results to a Sink
// in sort-key order under a backpressure policy. Files without any block
// are handled by an optional whole-file Default.
package extract

import (
	"context"
	"io"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/blockhead/pkg/types"
)

// NativeLineFeed is the platform line separator.
var NativeLineFeed = nativeLineFeed(runtime.GOOS)

func nativeLineFeed(goos string) string {
	if goos == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Config holds the engine settings.
type Config struct {
	// Blocks is any shape accepted by Normalize.
	Blocks any
	// Default handles files without blocks. Nil drops them.
	Default *Default
	// Backpressure is the policy for refused artifacts.
	Backpressure Backpressure
	// LineFeed splits and rejoins lines. Empty selects NativeLineFeed.
	LineFeed string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for warnings and debug events.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine extracts blocks from files. It is safe for concurrent use as long
// as the configured hooks are.
type Engine struct {
	defs     []*Definition
	def      *Default
	bp       Backpressure
	lineFeed string
	log      *log.Logger
}

// New validates cfg and builds an Engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	defs, err := Normalize(cfg.Blocks)
	if err != nil {
		return nil, err
	}
	if err := cfg.Backpressure.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		defs:     defs,
		def:      cfg.Default,
		bp:       cfg.Backpressure,
		lineFeed: cfg.LineFeed,
		log:      log.New(io.Discard),
	}
	if e.lineFeed == "" {
		e.lineFeed = NativeLineFeed
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Definitions returns the normalized definitions in match order.
func (e *Engine) Definitions() []*Definition {
	out := make([]*Definition, len(e.defs))
	copy(out, e.defs)
	return out
}

// Backpressure returns the configured policy.
func (e *Engine) Backpressure() Backpressure { return e.bp }

// Process extracts the blocks of one record and pushes the artifacts to
// sink. A null record is passed through; a streamed record is rejected.
// An error means the file failed; artifacts are only pushed after the
// whole file scanned cleanly and every block resolved.
func (e *Engine) Process(ctx context.Context, rec types.Record, sink Sink) error {
	switch {
	case rec.IsStream():
		return &UnsupportedInputError{Path: rec.Path, Reason: "streamed contents are not supported"}
	case rec.IsNull():
		e.log.Debug("null record, passing through", "path", rec.Path)
		return e.push(ctx, types.ArtifactFromRecord(rec), sink)
	}

	regions, err := e.scan(rec.Path, strings.Split(string(rec.Contents), e.lineFeed))
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		return e.fallback(ctx, rec, sink)
	}

	items := make([]pending, 0, len(regions))
	for _, r := range regions {
		p, ok, err := e.resolve(rec, r)
		if err != nil {
			return err
		}
		if ok {
			items = append(items, p)
		}
	}
	return e.emit(ctx, items, sink)
}
