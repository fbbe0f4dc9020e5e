// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand resolves doublestar patterns relative to base and returns the
// matching file paths, joined with base, sorted and without duplicates.
// Patterns starting with "!" exclude matches. Directories are skipped.
func Expand(base string, patterns []string) ([]string, error) {
	if base == "" {
		base = "."
	}

	var include, exclude []string
	for _, p := range patterns {
		neg := strings.HasPrefix(p, "!")
		p = filepath.ToSlash(strings.TrimPrefix(p, "!"))
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		if neg {
			exclude = append(exclude, p)
		} else {
			include = append(include, p)
		}
	}

	fsys := os.DirFS(base)
	seen := make(map[string]struct{})
	var out []string
	for _, p := range include {
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", p, err)
		}
		for _, m := range matches {
			if MatchAny(exclude, m) {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, filepath.Join(base, filepath.FromSlash(m)))
		}
	}
	slices.Sort(out)
	return out, nil
}

// MatchAny reports whether path matches any of the patterns.
func MatchAny(patterns []string, path string) bool {
	normalized := filepath.ToSlash(path)
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, normalized); err == nil && ok {
			return true
		}
	}
	return false
}
