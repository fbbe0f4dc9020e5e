// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is. Every typed error below unwraps to
// exactly one of them.
var (
	ErrConfiguration     = errors.New("invalid block configuration")
	ErrUnterminatedBlock = errors.New("unterminated block")
	ErrUnsupportedInput  = errors.New("unsupported input")
	ErrBackpressure      = errors.New("backpressure")
)

// ConfigError reports a block or engine configuration that cannot be built.
// It is raised by New, never while processing files.
type ConfigError struct {
	ID      string // block id as configured; empty for engine-level settings
	Message string
}

func (e *ConfigError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%v: %s", ErrConfiguration, e.Message)
	}
	return fmt.Sprintf("%v: block %q: %s", ErrConfiguration, e.ID, e.Message)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// UnterminatedBlockError reports a file that ended while a block was open.
type UnterminatedBlockError struct {
	Path string // source file
	ID   string // block id as configured
	Line int    // 1-based line of the opening delimiter
	End  string // end pattern that never matched
}

func (e *UnterminatedBlockError) Error() string {
	return fmt.Sprintf("missing closing block syntax in %s: block %q opened on line %d not closed with %s",
		e.Path, e.ID, e.Line, e.End)
}

func (e *UnterminatedBlockError) Unwrap() error { return ErrUnterminatedBlock }

// UnsupportedInputError reports a record the engine cannot read.
type UnsupportedInputError struct {
	Path   string
	Reason string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("%v %s: %s", ErrUnsupportedInput, e.Path, e.Reason)
}

func (e *UnsupportedInputError) Unwrap() error { return ErrUnsupportedInput }

// BackpressureError reports a sink that refused an artifact under the error
// policy. Artifacts after it are not emitted.
type BackpressureError struct {
	Path     string // source file
	Artifact string // artifact that was refused
	ID       string // block id; empty for whole-file artifacts
	Line     int
}

func (e *BackpressureError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("cannot continue buffering %s due to %v", e.Artifact, ErrBackpressure)
	}
	return fmt.Sprintf("cannot continue buffering block %q of %s +%d due to %v",
		e.ID, e.Path, e.Line, ErrBackpressure)
}

func (e *BackpressureError) Unwrap() error { return ErrBackpressure }
