// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/blockhead/pkg/types"
)

// Sink receives artifacts. Push reports false when the sink cannot take
// more right now; that is backpressure, not an error.
type Sink interface {
	Push(ctx context.Context, a types.Artifact) (bool, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, a types.Artifact) (bool, error)

// Push calls f.
func (f SinkFunc) Push(ctx context.Context, a types.Artifact) (bool, error) { return f(ctx, a) }

// Policy selects what happens when a sink refuses an artifact.
type Policy int

const (
	// PolicyWarn logs a warning and moves on.
	PolicyWarn Policy = iota
	// PolicyDrop moves on silently.
	PolicyDrop
	// PolicyError fails the file.
	PolicyError
	// PolicyRetry waits Delay and pushes the same artifact again.
	PolicyRetry
)

func (p Policy) String() string {
	switch p {
	case PolicyWarn:
		return "warn"
	case PolicyDrop:
		return "drop"
	case PolicyError:
		return "error"
	case PolicyRetry:
		return "retry"
	default:
		return "Policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// Backpressure is a sink-refusal policy. The zero value warns.
type Backpressure struct {
	Policy Policy
	Delay  time.Duration
}

func (b Backpressure) String() string {
	if b.Policy == PolicyRetry {
		return "retry after " + b.Delay.String()
	}
	return b.Policy.String()
}

// ParseBackpressure reads a policy from its textual form:
//
//	"" | "warn"        warn
//	"false" | "drop"   drop silently
//	"true" | "error"   fail the file
//	"250"              retry after 250ms
//	"1.5s"             retry after the duration
func ParseBackpressure(s string) (Backpressure, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "warn":
		return Backpressure{Policy: PolicyWarn}, nil
	case "false", "drop":
		return Backpressure{Policy: PolicyDrop}, nil
	case "true", "error":
		return Backpressure{Policy: PolicyError}, nil
	}

	if ms, err := strconv.Atoi(v); err == nil {
		return retryAfter(time.Duration(ms) * time.Millisecond)
	}
	if d, err := time.ParseDuration(v); err == nil {
		return retryAfter(d)
	}
	return Backpressure{}, &ConfigError{Message: fmt.Sprintf("unknown backpressure policy %q", s)}
}

// RetryAfter returns a retry policy with delay d.
func RetryAfter(d time.Duration) Backpressure {
	return Backpressure{Policy: PolicyRetry, Delay: d}
}

func retryAfter(d time.Duration) (Backpressure, error) {
	b := RetryAfter(d)
	if err := b.validate(); err != nil {
		return Backpressure{}, err
	}
	return b, nil
}

func (b Backpressure) validate() error {
	if b.Policy < PolicyWarn || b.Policy > PolicyRetry {
		return &ConfigError{Message: fmt.Sprintf("unknown backpressure policy %v", b.Policy)}
	}
	if b.Policy == PolicyRetry && b.Delay <= 0 {
		return &ConfigError{Message: fmt.Sprintf("backpressure retry delay must be positive, got %s", b.Delay)}
	}
	return nil
}

// emit pushes pending artifacts in ascending sort key order. Equal keys
// keep close order. Each artifact is settled before the next is tried.
func (e *Engine) emit(ctx context.Context, items []pending, sink Sink) error {
	slices.SortStableFunc(items, func(a, b pending) int { return cmp.Compare(a.key, b.key) })
	for _, it := range items {
		if err := e.push(ctx, it.artifact, sink); err != nil {
			return err
		}
		e.log.Debug("extracted", "path", it.artifact.Path, "line", it.artifact.LineOffset+1, "size", len(it.artifact.Contents))
	}
	return nil
}

// push hands one artifact to the sink and applies the backpressure policy
// when it is refused.
func (e *Engine) push(ctx context.Context, a types.Artifact, sink Sink) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := sink.Push(ctx, a)
		if err != nil {
			return fmt.Errorf("pushing %s: %w", a.Path, err)
		}
		if ok {
			return nil
		}

		switch e.bp.Policy {
		case PolicyDrop:
			e.log.Debug("backpressure, dropping", "path", a.Path)
			return nil
		case PolicyError:
			return &BackpressureError{Path: a.Source, Artifact: a.Path, ID: a.Block, Line: a.LineOffset + 1}
		case PolicyRetry:
			e.log.Debug("backpressure, retrying", "path", a.Path, "delay", e.bp.Delay)
			timer := time.NewTimer(e.bp.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		default:
			e.log.Warn("backpressure encountered", "block", a.Block, "path", a.Path, "line", a.LineOffset+1)
			return nil
		}
	}
}
