// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"

	"github.com/pdiddy/blockhead/pkg/types"
)

// pending is a resolved artifact waiting for emission.
type pending struct {
	key      int
	artifact types.Artifact
}

// resolve applies ignore, transform, name and sort to one region. It
// reports false when the region is ignored.
func (e *Engine) resolve(rec types.Record, r region) (pending, bool, error) {
	if r.def.ignore.eval(rec.Path, r.match, false) {
		e.log.Debug("block ignored", "path", rec.Path, "block", r.def.Label, "line", r.match.LineOffset)
		return pending{}, false, nil
	}

	out, err := r.def.transform(r.content, rec.Path, r.match)
	if err != nil {
		return pending{}, false, fmt.Errorf("transforming block %q of %s +%d: %w",
			r.def.Label, rec.Path, r.match.LineOffset, err)
	}

	return pending{
		key: r.def.sort.eval(rec.Path, r.match),
		artifact: types.Artifact{
			Path:       r.def.name(rec.Path, r.match),
			Contents:   []byte(out),
			Stat:       rec.Stat,
			Source:     rec.Path,
			Block:      r.def.ID,
			LineOffset: r.match.LineOffset,
		},
	}, true, nil
}
