// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/blockhead/internal/store"
)

func TestSplitPatterns(t *testing.T) {
	include, exclude := splitPatterns([]string{"src/**/*.html", "!src/vendor/**", "docs/*.md"})
	assert.Equal(t, []string{"src/**/*.html", "docs/*.md"}, include)
	assert.Equal(t, []string{"src/vendor/**"}, exclude)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b c", preview("a\n  b\tc", 30))
}

func TestFormatEntries(t *testing.T) {
	entries := []store.Entry{
		{Path: "site/index.html#script", Source: "site/index.html", Block: "script", LineOffset: 3, Size: 12, Contents: "console.log(1)"},
	}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, formatEntries(&buf, entries, false))
		out := buf.String()
		assert.Contains(t, out, "site/index.html#script")
		assert.Contains(t, out, "1 artifacts")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, formatEntries(&buf, entries, true))
		var got []store.Entry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "script", got[0].Block)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, formatEntries(&buf, nil, false))
		assert.Equal(t, "No artifacts found.\n", buf.String())
	})
}
