// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sandbox

import (
	"context"
	"io"
	"maps"
	"strings"

	"github.com/pdiddy/blockhead/internal/container"
)

// defaultCommand reads the script from stdin.
var defaultCommand = []string{"sh", "-s"}

// Container runs each script in a fresh container, piping the content to
// the image's stdin. Failures are reported at the block's first line.
type Container struct {
	Runtime container.Runtime
	Image   string
	// Command defaults to "sh -s".
	Command []string
	Env     map[string]string
	Network string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Run executes s in a container.
func (c *Container) Run(ctx context.Context, s Script) error {
	env := maps.Clone(c.Env)
	if env == nil {
		env = make(map[string]string)
	}
	maps.Copy(env, s.Env())

	cmd := c.Command
	if len(cmd) == 0 {
		cmd = defaultCommand
	}

	err := c.Runtime.Run(ctx, container.Request{
		Image:   c.Image,
		Command: cmd,
		Env:     env,
		Network: c.Network,
		Stdin:   strings.NewReader(s.Content),
		Stdout:  c.Stdout,
		Stderr:  c.Stderr,
	})
	if err != nil {
		return &ScriptError{Path: s.Path, Line: s.LineOffset + 1, Err: err}
	}
	return nil
}
