// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sandbox executes block contents as scripts. Errors point back at
// the source file and line the failing statement came from, so a failure in
// an extracted block reads like a failure in the file it lives in.
package sandbox

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
)

// Script is one block to execute.
type Script struct {
	// Path is the source file the block came from.
	Path string
	// Block is the block id.
	Block string
	// Content is the block body.
	Content string
	// LineOffset is the line of the opening delimiter; content line k is
	// source line LineOffset+k.
	LineOffset int
}

// Env returns the variables describing the script to the code it runs.
func (s Script) Env() map[string]string {
	return map[string]string{
		"BLOCKHEAD_FILE":  filepath.Base(s.Path),
		"BLOCKHEAD_PATH":  s.Path,
		"BLOCKHEAD_BLOCK": s.Block,
		"BLOCKHEAD_LINE":  strconv.Itoa(s.LineOffset + 1),
	}
}

// Runner executes scripts.
type Runner interface {
	Run(ctx context.Context, s Script) error
}

// ScriptError locates a script failure in its source file.
type ScriptError struct {
	Path string
	Line int
	Err  error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }
