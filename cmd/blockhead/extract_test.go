// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/blockhead/internal/config"
	"github.com/pdiddy/blockhead/internal/extract"
	"github.com/pdiddy/blockhead/internal/sink"
	"github.com/pdiddy/blockhead/pkg/types"
)

func TestWithQueueDefaults(t *testing.T) {
	cfg := withQueueDefaults(types.PipelineConfig{})
	assert.Equal(t, defaultBackpressure, cfg.Backpressure)
	assert.Equal(t, defaultQueueSize, cfg.QueueSize)

	bp, err := extract.ParseBackpressure(cfg.Backpressure)
	require.NoError(t, err)
	assert.Equal(t, extract.PolicyRetry, bp.Policy)

	kept := withQueueDefaults(types.PipelineConfig{Backpressure: "true", QueueSize: 8})
	assert.Equal(t, "true", kept.Backpressure)
	assert.Equal(t, 8, kept.QueueSize)
}

func TestBatchDeliversEveryArtifactThroughSmallQueue(t *testing.T) {
	const blocks = 20

	var body strings.Builder
	for range blocks {
		body.WriteString("<foo>\nx\n</foo>\n")
	}
	path := filepath.Join(t.TempDir(), "many.txt")
	require.NoError(t, os.WriteFile(path, []byte(body.String()), 0o644))

	cfg := withQueueDefaults(types.PipelineConfig{
		Blocks:   []types.BlockConfig{{ID: "foo", Name: "{{.Path}}#{{.Line}}"}},
		LineFeed: "\n",
	})
	ecfg, err := config.Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	engine, err := extract.New(ecfg)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		written []string
	)
	slow := sink.WriterFunc(func(_ context.Context, a types.Artifact) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		written = append(written, a.Path)
		mu.Unlock()
		return nil
	})

	var out bytes.Buffer
	b := &batch{engine: engine, writer: slow, queueSize: 2, out: &out}
	summary, err := b.run(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Extracted)
	assert.Equal(t, blocks, summary.Artifacts)
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, written, blocks)
	assert.Contains(t, out.String(), "(20 artifacts)")
}
