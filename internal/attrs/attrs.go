// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package attrs parses the attribute fragment of an HTML-like opening tag,
// e.g. `lang="go" defer order=2`, into a name/value map.
package attrs

import (
	"sort"
	"strings"
	"unicode"
)

// Value is a single attribute value. Bare attributes (`defer`) are flags and
// carry no text; `k=v`, `k="v"` and `k='v'` carry the text verbatim.
// Numeric-looking text is never converted.
type Value struct {
	Text string
	Flag bool
}

// String renders a flag as "true" and a text value as itself.
func (v Value) String() string {
	if v.Flag {
		return "true"
	}
	return v.Text
}

// Attributes maps attribute names to values.
type Attributes map[string]Value

// Has reports whether the named attribute is present, flag or text.
func (a Attributes) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Get returns the rendered value of name and whether it is present.
func (a Attributes) Get(name string) (string, bool) {
	v, ok := a[name]
	if !ok {
		return "", false
	}
	return v.String(), true
}

// Names returns the attribute names in sorted order.
func (a Attributes) Names() []string {
	names := make([]string, 0, len(a))
	for k := range a {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map converts the attributes to plain values: bool true for flags and
// string for everything else.
func (a Attributes) Map() map[string]any {
	m := make(map[string]any, len(a))
	for k, v := range a {
		if v.Flag {
			m[k] = true
		} else {
			m[k] = v.Text
		}
	}
	return m
}

// Parse splits fragment into attributes. It never fails: unterminated quotes
// run to the end of the fragment and stray '=' signs are skipped. When a name
// repeats, the last occurrence wins.
func Parse(fragment string) Attributes {
	out := Attributes{}
	s := fragment
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return out
		}

		n := nameEnd(s)
		if n == 0 {
			// Lone '=' or quote with no name in front of it.
			s = s[1:]
			continue
		}
		name := s[:n]
		s = s[n:]

		rest := strings.TrimLeftFunc(s, unicode.IsSpace)
		if !strings.HasPrefix(rest, "=") {
			out[name] = Value{Flag: true}
			continue
		}
		rest = strings.TrimLeftFunc(rest[1:], unicode.IsSpace)

		var val string
		val, s = readValue(rest)
		out[name] = Value{Text: val}
	}
}

// nameEnd returns the length of the attribute name at the start of s.
func nameEnd(s string) int {
	for i, r := range s {
		if unicode.IsSpace(r) || r == '=' || r == '"' || r == '\'' {
			return i
		}
	}
	return len(s)
}

// readValue consumes a quoted or bare value from the start of s and returns
// it along with the unread remainder.
func readValue(s string) (string, string) {
	if s == "" {
		return "", ""
	}
	if q := s[0]; q == '"' || q == '\'' {
		body := s[1:]
		if end := strings.IndexByte(body, q); end >= 0 {
			return body[:end], body[end+1:]
		}
		return body, ""
	}
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}
