// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sink provides the artifact destinations used by the batch runner:
// a bounded Queue that exerts backpressure on the engine, and Writers that
// persist artifacts to a directory, to memory, or to several places at once.
package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/pdiddy/blockhead/pkg/types"
)

// ErrClosed is returned when pushing to a closed Queue.
var ErrClosed = errors.New("sink closed")

// Writer persists artifacts. A Writer never refuses an artifact; it either
// stores it or fails.
type Writer interface {
	Write(ctx context.Context, a types.Artifact) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, a types.Artifact) error

// Write calls f.
func (f WriterFunc) Write(ctx context.Context, a types.Artifact) error { return f(ctx, a) }

// Direct is a sink that writes each artifact synchronously and never
// signals backpressure.
type Direct struct {
	W Writer
}

// Push writes a and reports it accepted.
func (d Direct) Push(ctx context.Context, a types.Artifact) (bool, error) {
	if err := d.W.Write(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}

// Queue is a bounded buffer between the engine and a Writer. Push never
// blocks: a full queue reports false and the engine applies its
// backpressure policy.
type Queue struct {
	ch chan types.Artifact

	mu     sync.RWMutex
	closed bool
}

// NewQueue returns a queue holding at most size artifacts. A size below 1
// is raised to 1.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan types.Artifact, size)}
}

// Push enqueues a if there is room.
func (q *Queue) Push(ctx context.Context, a types.Artifact) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false, ErrClosed
	}
	select {
	case q.ch <- a:
		return true, nil
	default:
		return false, nil
	}
}

// Len returns the number of queued artifacts.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Close stops accepting artifacts. Queued artifacts can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Drain writes queued artifacts to w until the queue is closed and empty,
// ctx is done, or w fails.
func (q *Queue) Drain(ctx context.Context, w Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a, ok := <-q.ch:
			if !ok {
				return nil
			}
			if err := w.Write(ctx, a); err != nil {
				return err
			}
		}
	}
}

// Collector keeps artifacts in memory. It is both a Writer and a sink that
// always accepts.
type Collector struct {
	mu        sync.Mutex
	artifacts []types.Artifact
}

// Write appends a.
func (c *Collector) Write(_ context.Context, a types.Artifact) error {
	c.mu.Lock()
	c.artifacts = append(c.artifacts, a)
	c.mu.Unlock()
	return nil
}

// Push appends a and reports it accepted.
func (c *Collector) Push(ctx context.Context, a types.Artifact) (bool, error) {
	return true, c.Write(ctx, a)
}

// Artifacts returns a copy of the collected artifacts in arrival order.
func (c *Collector) Artifacts() []types.Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Artifact, len(c.artifacts))
	copy(out, c.artifacts)
	return out
}

// Len returns the number of collected artifacts.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.artifacts)
}

type multi []Writer

// Multi returns a Writer that writes to every w. All writers are tried;
// their errors are joined.
func Multi(ws ...Writer) Writer {
	out := make(multi, 0, len(ws))
	for _, w := range ws {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}

func (m multi) Write(ctx context.Context, a types.Artifact) error {
	var errs []error
	for _, w := range m {
		if err := w.Write(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
