// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     map[string]any
	}{
		{
			name:     "empty fragment",
			fragment: "",
			want:     map[string]any{},
		},
		{
			name:     "bare names are flags",
			fragment: " attrib1 attrib2",
			want:     map[string]any{"attrib1": true, "attrib2": true},
		},
		{
			name:     "quoted and unquoted values stay strings",
			fragment: `attrib3="this is a string" attrib4=123`,
			want:     map[string]any{"attrib3": "this is a string", "attrib4": "123"},
		},
		{
			name:     "single quotes",
			fragment: `lang='go' order='2'`,
			want:     map[string]any{"lang": "go", "order": "2"},
		},
		{
			name:     "spaces around equals",
			fragment: `lang = "sh"  defer`,
			want:     map[string]any{"lang": "sh", "defer": true},
		},
		{
			name:     "empty quoted value is text, not a flag",
			fragment: `title=""`,
			want:     map[string]any{"title": ""},
		},
		{
			name:     "last duplicate wins",
			fragment: `a=1 a=2`,
			want:     map[string]any{"a": "2"},
		},
		{
			name:     "unterminated quote runs to end",
			fragment: `note="open ended`,
			want:     map[string]any{"note": "open ended"},
		},
		{
			name:     "stray equals is skipped",
			fragment: `= flag`,
			want:     map[string]any{"flag": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.fragment).Map())
		})
	}
}

func TestAttributesAccessors(t *testing.T) {
	a := Parse(`src="x.js" defer`)

	assert.True(t, a.Has("src"))
	assert.True(t, a.Has("defer"))
	assert.False(t, a.Has("async"))

	v, ok := a.Get("defer")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	v, ok = a.Get("src")
	assert.True(t, ok)
	assert.Equal(t, "x.js", v)

	_, ok = a.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"defer", "src"}, a.Names())
}
