// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sandbox

import (
	"context"
	"fmt"

	"github.com/pdiddy/blockhead/internal/extract"
	"github.com/pdiddy/blockhead/internal/pipeline"
	"github.com/pdiddy/blockhead/pkg/types"
)

// DefaultBlock is the block id executed when none is given.
const DefaultBlock = "backend"

// Blocks returns block options that execute matching blocks with r and
// emit an empty artifact named after the source file. ids defaults to
// DefaultBlock.
func Blocks(ctx context.Context, r Runner, ids ...string) []extract.Options {
	if len(ids) == 0 {
		ids = []string{DefaultBlock}
	}
	out := make([]extract.Options, len(ids))
	for i, id := range ids {
		out[i] = extract.Options{
			ID:        id,
			Name:      func(path string, _ extract.Match) string { return path },
			Transform: Exec(ctx, r),
		}
	}
	return out
}

// Exec returns a transform that runs the block with r and yields no
// content.
func Exec(ctx context.Context, r Runner) extract.TransformFunc {
	return func(content, path string, m extract.Match) (string, error) {
		return "", r.Run(ctx, Script{
			Path:       path,
			Block:      m.ID,
			Content:    content,
			LineOffset: m.LineOffset,
		})
	}
}

// Import executes the given blocks of every file in paths, in order,
// stopping at the first failure.
func Import(ctx context.Context, r Runner, paths []string, ids ...string) error {
	e, err := extract.New(extract.Config{
		Blocks:       Blocks(ctx, r, ids...),
		Backpressure: extract.Backpressure{Policy: extract.PolicyDrop},
	})
	if err != nil {
		return err
	}

	discard := extract.SinkFunc(func(context.Context, types.Artifact) (bool, error) { return true, nil })
	for _, p := range paths {
		if _, _, err := pipeline.ProcessFile(ctx, e, p, discard); err != nil {
			return fmt.Errorf("importing %s: %w", p, err)
		}
	}
	return nil
}
