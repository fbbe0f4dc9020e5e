// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/blockhead/internal/attrs"
)

// Match is the context of one opened block. A fresh Match is built for every
// opening line and handed to the definition's hooks; definitions themselves
// never store per-match state, so one Engine can serve many files at once.
type Match struct {
	// ID is the tag part of the definition id.
	ID string
	// Label is the definition id as configured, e.g. "script#setup".
	Label string
	// Tag is the tag literal found on the opening line.
	Tag string
	// Attr holds the parsed attributes of the opening line.
	Attr attrs.Attributes
	// LineOffset is the 1-based line of the opening delimiter, which is
	// also the 0-based index of the first content line.
	LineOffset int
}

// TransformFunc maps block content to artifact content. Returning "" yields
// an empty artifact. An error fails the file.
type TransformFunc func(content, path string, m Match) (string, error)

// ContentFunc is the content-only shorthand for a transform.
type ContentFunc func(content string) string

// NameFunc computes the artifact path for a block.
type NameFunc func(path string, m Match) string

// Predicate decides a filter or ignore question for one match.
type Predicate func(path string, m Match) bool

// SortFunc computes a sort key for one match.
type SortFunc func(path string, m Match) int

// Cond is either a constant or a predicate. The zero Cond is unset and
// evaluates to the caller's default.
type Cond struct {
	fn  Predicate
	val bool
	set bool
}

// If returns a Cond backed by fn. A nil fn leaves the Cond unset.
func If(fn Predicate) Cond { return Cond{fn: fn, set: fn != nil} }

// Always returns a constant Cond.
func Always(v bool) Cond { return Cond{val: v, set: true} }

// IsSet reports whether the Cond was given a value.
func (c Cond) IsSet() bool { return c.set }

func (c Cond) eval(path string, m Match, def bool) bool {
	switch {
	case !c.set:
		return def
	case c.fn != nil:
		return c.fn(path, m)
	default:
		return c.val
	}
}

// Key is either a constant sort key or a function producing one. The zero
// Key sorts at 0.
type Key struct {
	fn  SortFunc
	val int
}

// SortAt returns a constant Key.
func SortAt(n int) Key { return Key{val: n} }

// SortBy returns a Key computed per match.
func SortBy(fn SortFunc) Key { return Key{fn: fn} }

func (k Key) eval(path string, m Match) int {
	if k.fn != nil {
		return k.fn(path, m)
	}
	return k.val
}

// Options is a partial block definition. Unset hooks take their defaults:
// identity transform, "<path>#<tag>" name, sort key 0, filter true and
// ignore false.
type Options struct {
	// ID is "tag" or "tag#attr". The second form only opens on lines that
	// carry attr and cannot be combined with Filter.
	ID        string
	Transform TransformFunc
	Name      NameFunc
	Sort      Key
	Filter    Cond
	Ignore    Cond
}

// Definition is a normalized, immutable block definition.
type Definition struct {
	ID    string
	Label string

	start *regexp.Regexp
	end   *regexp.Regexp

	transform TransformFunc
	name      NameFunc
	sort      Key
	filter    Cond
	ignore    Cond
}

// EndPattern returns the pattern that closes the block.
func (d *Definition) EndPattern() string { return d.end.String() }

// Normalize turns any supported block notation into an ordered list of
// definitions. Accepted shapes:
//
//	nil
//	Options, []Options
//	map[string]TransformFunc, map[string]ContentFunc, map[string]func(string) string
//	map[string]Options
//	map[string]any with values of any of the kinds above
//
// Slices keep their order. Maps have no order in Go and are normalized in
// lexical id order. Since "script" sorts before "script#attr", a bare tag in
// a map always wins over its tag#attr variants; give tag#attr definitions
// precedence by passing them first in a []Options.
func Normalize(blocks any) ([]*Definition, error) {
	var list []Options

	switch v := blocks.(type) {
	case nil:
		return nil, nil
	case Options:
		list = []Options{v}
	case []Options:
		list = append(list, v...)
	case map[string]TransformFunc:
		for _, id := range sortedKeys(v) {
			list = append(list, Options{ID: id, Transform: v[id]})
		}
	case map[string]ContentFunc:
		for _, id := range sortedKeys(v) {
			list = append(list, Options{ID: id, Transform: contentTransform(v[id])})
		}
	case map[string]func(string) string:
		for _, id := range sortedKeys(v) {
			list = append(list, Options{ID: id, Transform: contentTransform(v[id])})
		}
	case map[string]Options:
		for _, id := range sortedKeys(v) {
			opt := v[id]
			opt.ID = id
			list = append(list, opt)
		}
	case map[string]any:
		for _, id := range sortedKeys(v) {
			opt, err := optionsFor(id, v[id])
			if err != nil {
				return nil, err
			}
			list = append(list, opt)
		}
	default:
		return nil, &ConfigError{Message: fmt.Sprintf("unsupported blocks value of type %T", blocks)}
	}

	defs := make([]*Definition, 0, len(list))
	for _, opt := range list {
		d, err := compile(opt)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// optionsFor expands one map value into Options.
func optionsFor(id string, v any) (Options, error) {
	switch fn := v.(type) {
	case nil:
		return Options{ID: id}, nil
	case TransformFunc:
		return Options{ID: id, Transform: fn}, nil
	case func(string, string, Match) (string, error):
		return Options{ID: id, Transform: fn}, nil
	case ContentFunc:
		return Options{ID: id, Transform: contentTransform(fn)}, nil
	case func(string) string:
		return Options{ID: id, Transform: contentTransform(fn)}, nil
	case Options:
		fn.ID = id
		return fn, nil
	case *Options:
		if fn == nil {
			return Options{ID: id}, nil
		}
		opt := *fn
		opt.ID = id
		return opt, nil
	default:
		return Options{}, &ConfigError{ID: id, Message: fmt.Sprintf("unsupported block value of type %T", v)}
	}
}

// compile fills defaults and builds the boundary rules for one definition.
func compile(opt Options) (*Definition, error) {
	tag, attr, hasAttr := strings.Cut(opt.ID, "#")
	if strings.TrimSpace(tag) == "" {
		return nil, &ConfigError{ID: opt.ID, Message: "empty tag name"}
	}

	if hasAttr {
		if attr == "" {
			return nil, &ConfigError{ID: opt.ID, Message: "empty attribute after '#'"}
		}
		if opt.Filter.IsSet() {
			return nil, &ConfigError{ID: opt.ID, Message: "cannot combine tag#attr filters with a filter, choose one or the other"}
		}
		opt.Filter = If(requireAttr(attr))
	}

	d := &Definition{
		ID:        tag,
		Label:     opt.ID,
		transform: opt.Transform,
		name:      opt.Name,
		sort:      opt.Sort,
		filter:    opt.Filter,
		ignore:    opt.Ignore,
	}
	d.start, d.end = boundaries(tag)

	if d.transform == nil {
		d.transform = identity
	}
	if d.name == nil {
		d.name = defaultName
	}
	return d, nil
}

func identity(content, _ string, _ Match) (string, error) { return content, nil }

func defaultName(path string, m Match) string { return path + "#" + m.ID }

func contentTransform(fn func(string) string) TransformFunc {
	if fn == nil {
		return nil
	}
	return func(content, _ string, _ Match) (string, error) {
		return fn(content), nil
	}
}

func requireAttr(name string) Predicate {
	return func(_ string, m Match) bool { return m.Attr.Has(name) }
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
