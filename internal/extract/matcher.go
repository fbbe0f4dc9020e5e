// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"
)

// boundaries builds the start and end rules for tag. Both are anchored and
// applied to the trimmed line, so a delimiter must be alone on its line.
// The start rule captures the tag literal and the raw attribute fragment.
func boundaries(tag string) (start, end *regexp.Regexp) {
	q := regexp.QuoteMeta(tag)
	start = regexp.MustCompile(`^<(` + q + `)(?:\s+(.*?))?\s*>$`)
	end = regexp.MustCompile(`^</` + q + `>$`)
	return start, end
}

// opens tests line against the start rule.
func (d *Definition) opens(line string) (tag, fragment string, ok bool) {
	m := d.start.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// closes tests line against the end rule.
func (d *Definition) closes(line string) bool {
	return d.end.MatchString(strings.TrimSpace(line))
}
