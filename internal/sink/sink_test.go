// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/blockhead/pkg/types"
)

func artifact(path, body string) types.Artifact {
	return types.Artifact{Path: path, Contents: []byte(body), Source: path}
}

func TestQueueBackpressure(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(2)

	for _, p := range []string{"a", "b"} {
		ok, err := q.Push(ctx, artifact(p, p))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := q.Push(ctx, artifact("c", "c"))
	require.NoError(t, err)
	assert.False(t, ok, "full queue refuses")
	assert.Equal(t, 2, q.Len())

	q.Close()
	_, err = q.Push(ctx, artifact("d", "d"))
	assert.True(t, errors.Is(err, ErrClosed))

	c := &Collector{}
	require.NoError(t, q.Drain(ctx, c))
	got := c.Artifacts()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Path)
	assert.Equal(t, "b", got[1].Path)
}

func TestQueueMinimumSize(t *testing.T) {
	assert.Equal(t, 1, NewQueue(0).Cap())
	assert.Equal(t, 1, NewQueue(-3).Cap())
}

func TestQueueDrainConcurrent(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(1)
	c := &Collector{}

	done := make(chan error, 1)
	go func() { done <- q.Drain(ctx, c) }()

	for i := 0; i < 20; i++ {
		for {
			ok, err := q.Push(ctx, artifact("x", "x"))
			require.NoError(t, err)
			if ok {
				break
			}
			time.Sleep(time.Millisecond)
		}
	}
	q.Close()
	require.NoError(t, <-done)
	assert.Equal(t, 20, c.Len())
}

func TestQueueDrainStopsOnError(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(2)
	_, _ = q.Push(ctx, artifact("a", "a"))
	q.Close()

	boom := errors.New("boom")
	err := q.Drain(ctx, WriterFunc(func(context.Context, types.Artifact) error { return boom }))
	assert.True(t, errors.Is(err, boom))
}

func TestQueueDrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewQueue(1).Drain(ctx, &Collector{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDirect(t *testing.T) {
	c := &Collector{}
	ok, err := Direct{W: c}.Push(context.Background(), artifact("a", "x"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())

	boom := errors.New("boom")
	ok, err = Direct{W: WriterFunc(func(context.Context, types.Artifact) error { return boom })}.
		Push(context.Background(), artifact("a", "x"))
	assert.False(t, ok)
	assert.True(t, errors.Is(err, boom))
}

func TestMulti(t *testing.T) {
	a, b := &Collector{}, &Collector{}
	boom := errors.New("boom")
	failing := WriterFunc(func(context.Context, types.Artifact) error { return boom })

	err := Multi(a, nil, failing, b).Write(context.Background(), artifact("p", "x"))
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len(), "later writers still run")
}

func TestDirTarget(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "relative", path: "site/index.html#foo", want: "site/index.html#foo"},
		{name: "base stripped", base: "src", path: "src/a/b.html#x", want: "a/b.html#x"},
		{name: "outside base kept", base: "src", path: "other/b.html", want: "other/b.html"},
		{name: "cleaned", path: "a/./b/../c", want: "a/c"},
		{name: "escape", path: "../etc/passwd", wantErr: true},
		{name: "absolute", path: "/etc/passwd", wantErr: true},
		{name: "empty", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDir("out", tt.base)
			require.NoError(t, err)
			got, err := d.Target(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrPathInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join("out", filepath.FromSlash(tt.want)), got)
		})
	}
}

func TestDirWrite(t *testing.T) {
	root := t.TempDir()
	d, err := NewDir(root, "")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, d.Write(ctx, artifact("site/index.html#foo", "first")))
	require.NoError(t, d.Write(ctx, artifact("site/index.html#foo", "second")))

	data, err := os.ReadFile(filepath.Join(root, "site", "index.html#foo"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "site"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDirWriteDirectoryRecord(t *testing.T) {
	src := t.TempDir()
	st, err := os.Stat(src)
	require.NoError(t, err)

	root := t.TempDir()
	d, err := NewDir(root, "")
	require.NoError(t, err)
	require.NoError(t, d.Write(context.Background(), types.Artifact{Path: "nested/dir", Stat: st}))

	info, err := os.Stat(filepath.Join(root, "nested", "dir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewDirRequiresRoot(t *testing.T) {
	_, err := NewDir(" ", "")
	assert.True(t, errors.Is(err, ErrPathInvalid))
}
