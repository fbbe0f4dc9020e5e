// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"

	"github.com/pdiddy/blockhead/internal/attrs"
)

// region is one closed block as found by the scanner.
type region struct {
	def     *Definition
	match   Match
	content string
}

// scan folds over lines and returns the closed regions in close order.
// While no block is open, definitions are tried in order and the first one
// whose start rule matches and whose filter accepts opens the block. While a
// block is open only its own end rule is tested, so blocks never nest and
// other delimiters inside are plain content.
func (e *Engine) scan(path string, lines []string) ([]region, error) {
	var (
		regions []region
		open    *Definition
		match   Match
	)

	for i, line := range lines {
		if open == nil {
			open, match = e.opening(path, line, i)
			continue
		}
		if !open.closes(line) {
			continue
		}
		regions = append(regions, region{
			def:     open,
			match:   match,
			content: strings.Join(lines[match.LineOffset:i], e.lineFeed),
		})
		open = nil
	}

	if open != nil {
		return nil, &UnterminatedBlockError{
			Path: path,
			ID:   open.Label,
			Line: match.LineOffset,
			End:  open.EndPattern(),
		}
	}
	return regions, nil
}

// opening returns the definition that opens at line index idx, if any.
func (e *Engine) opening(path, line string, idx int) (*Definition, Match) {
	for _, d := range e.defs {
		tag, fragment, ok := d.opens(line)
		if !ok {
			continue
		}
		m := Match{
			ID:         d.ID,
			Label:      d.Label,
			Tag:        tag,
			Attr:       attrs.Parse(fragment),
			LineOffset: idx + 1,
		}
		if d.filter.eval(path, m, true) {
			return d, m
		}
	}
	return nil, Match{}
}
