// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sandbox

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ShellOptions configures a Shell.
type ShellOptions struct {
	// Isolated gives every script a fresh interpreter. Otherwise one
	// interpreter is shared and variables and functions defined by one
	// block are visible to the next.
	Isolated bool
	// Dir is the working directory. Empty uses the process directory.
	Dir string
	// Env is the initial environment as KEY=VALUE pairs.
	Env []string
	// Stdout and Stderr receive script output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Shell runs scripts with an embedded POSIX shell interpreter. Top-level
// statements run one at a time and the first one that fails stops the
// script.
type Shell struct {
	opts ShellOptions

	mu     sync.Mutex
	shared *interp.Runner
}

// NewShell returns a Shell.
func NewShell(opts ShellOptions) *Shell {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	return &Shell{opts: opts}
}

// Run parses and executes s.
func (sh *Shell) Run(ctx context.Context, s Script) error {
	file, err := syntax.NewParser().Parse(strings.NewReader(s.Content), s.Path)
	if err != nil {
		var perr syntax.ParseError
		if errors.As(err, &perr) {
			return &ScriptError{Path: s.Path, Line: s.LineOffset + int(perr.Pos.Line()), Err: errors.New(perr.Text)}
		}
		return &ScriptError{Path: s.Path, Line: s.LineOffset + 1, Err: err}
	}

	// Scripts share one interpreter in order, so they run one at a time.
	sh.mu.Lock()
	defer sh.mu.Unlock()

	r, err := sh.runner()
	if err != nil {
		return &ScriptError{Path: s.Path, Line: s.LineOffset + 1, Err: err}
	}
	if err := exportEnv(ctx, r, s.Env()); err != nil {
		return &ScriptError{Path: s.Path, Line: s.LineOffset + 1, Err: err}
	}

	for _, stmt := range file.Stmts {
		err := r.Run(ctx, stmt)
		if r.Exited() {
			sh.shared = nil
		}
		if err != nil {
			return &ScriptError{Path: s.Path, Line: s.LineOffset + int(stmt.Pos().Line()), Err: err}
		}
		if r.Exited() {
			break
		}
	}
	return nil
}

func (sh *Shell) runner() (*interp.Runner, error) {
	if !sh.opts.Isolated && sh.shared != nil {
		return sh.shared, nil
	}

	opts := []interp.RunnerOption{
		interp.StdIO(nil, sh.opts.Stdout, sh.opts.Stderr),
	}
	if sh.opts.Dir != "" {
		opts = append(opts, interp.Dir(sh.opts.Dir))
	}
	if sh.opts.Env != nil {
		opts = append(opts, interp.Env(expand.ListEnviron(sh.opts.Env...)))
	}

	r, err := interp.New(opts...)
	if err != nil {
		return nil, err
	}
	if !sh.opts.Isolated {
		sh.shared = r
	}
	return r, nil
}

// exportEnv sets vars in the interpreter by running an export statement.
func exportEnv(ctx context.Context, r *interp.Runner, vars map[string]string) error {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("export")
	for _, k := range keys {
		q, err := syntax.Quote(vars[k], syntax.LangBash)
		if err != nil {
			return err
		}
		b.WriteString(" " + k + "=" + q)
	}

	file, err := syntax.NewParser().Parse(strings.NewReader(b.String()), "")
	if err != nil {
		return err
	}
	return r.Run(ctx, file)
}
