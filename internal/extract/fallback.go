// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"

	"github.com/pdiddy/blockhead/pkg/types"
)

// Default describes the whole-file artifact emitted when a file has no
// blocks. A nil *Default drops such files. A zero Default passes them
// through unchanged.
type Default struct {
	// Include limits the fallback to some paths. Nil includes all.
	Include func(path string) bool
	// Transform rewrites the file contents.
	Transform func(content, path string) (string, error)
	// Name computes the artifact path from the source path and the rule
	// itself. Nil keeps the source path.
	Name func(path string, d *Default) string
	// DropStat clears the file metadata on the artifact.
	DropStat bool
}

// PassThrough is the default that re-emits blockless files unchanged.
var PassThrough = &Default{}

// fallback emits the whole-file artifact for a file with no blocks.
func (e *Engine) fallback(ctx context.Context, rec types.Record, sink Sink) error {
	d := e.def
	if d == nil {
		e.log.Debug("no blocks, dropped", "path", rec.Path)
		return nil
	}
	if d.Include != nil && !d.Include(rec.Path) {
		e.log.Debug("no blocks, not included", "path", rec.Path)
		return nil
	}

	a := types.ArtifactFromRecord(rec)
	if d.Transform != nil {
		out, err := d.Transform(string(rec.Contents), rec.Path)
		if err != nil {
			return fmt.Errorf("transforming %s: %w", rec.Path, err)
		}
		a.Contents = []byte(out)
	}
	if d.Name != nil {
		a.Path = d.Name(rec.Path, d)
	}
	if d.DropStat {
		a.Stat = nil
	}

	if err := e.push(ctx, a, sink); err != nil {
		return err
	}
	e.log.Debug("default artifact", "path", a.Path, "size", len(a.Contents))
	return nil
}
