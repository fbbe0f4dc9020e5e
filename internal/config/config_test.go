// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/blockhead/internal/extract"
	"github.com/pdiddy/blockhead/internal/sandbox"
	"github.com/pdiddy/blockhead/internal/sink"
	"github.com/pdiddy/blockhead/pkg/types"
)

func TestParseYAML(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
sources: ["site/**/*.html", "!site/vendor/**"]
blocks:
  - id: script#setup
    name: "{{.Dir}}/{{.Base}}.setup.sh"
    trim: true
  - id: style
    sort: 2
default:
  include: ["**/*.css"]
backpressure: 250
output_dir: out
concurrency: 8
sandbox:
  kind: shell
  isolated: true
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"site/**/*.html", "!site/vendor/**"}, cfg.Sources)
	require.Len(t, cfg.Blocks, 2)
	assert.Equal(t, "script#setup", cfg.Blocks[0].ID)
	assert.True(t, cfg.Blocks[0].Trim)
	assert.Equal(t, 2, cfg.Blocks[1].Sort)
	require.NotNil(t, cfg.Default)
	assert.Equal(t, []string{"**/*.css"}, cfg.Default.Include)
	assert.Equal(t, "250", cfg.Backpressure)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.True(t, cfg.Sandbox.Isolated)
}

func TestParseYAMLBlockMappingKeepsOrder(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
blocks:
  zeta:
  alpha:
    trim: true
  script#attr1: {}
`))
	require.NoError(t, err)

	var ids []string
	for _, b := range cfg.Blocks {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"zeta", "alpha", "script#attr1"}, ids)
	assert.True(t, cfg.Blocks[1].Trim)
}

func TestParseYAMLShapes(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantDefault bool
		wantBP      string
		wantErr     bool
	}{
		{name: "empty document", doc: ""},
		{name: "default false", doc: "default: false", wantDefault: false},
		{name: "default true", doc: "default: true", wantDefault: true},
		{name: "default mapping", doc: "default: {trim: true}", wantDefault: true},
		{name: "default null", doc: "default: ~"},
		{name: "default string", doc: "default: sometimes", wantErr: true},
		{name: "default list", doc: "default: [a]", wantErr: true},
		{name: "backpressure true", doc: "backpressure: true", wantBP: "true"},
		{name: "backpressure false", doc: "backpressure: false", wantBP: "false"},
		{name: "backpressure duration", doc: "backpressure: 1s", wantBP: "1s"},
		{name: "backpressure bad", doc: "backpressure: maybe", wantErr: true},
		{name: "backpressure list", doc: "backpressure: [1]", wantErr: true},
		{name: "unknown key", doc: "blokcs: []", wantErr: true},
		{name: "blocks scalar", doc: "blocks: foo", wantErr: true},
		{name: "block without id", doc: "blocks: [{trim: true}]", wantErr: true},
		{name: "negative concurrency", doc: "concurrency: -1", wantErr: true},
		{name: "container without image", doc: "sandbox: {kind: container}", wantErr: true},
		{name: "unknown sandbox", doc: "sandbox: {kind: vm}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseYAML([]byte(tt.doc))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, extract.ErrConfiguration), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDefault, cfg.Default != nil)
			assert.Equal(t, tt.wantBP, cfg.Backpressure)
		})
	}
}

const hclPipelineSrc = `
sources      = ["**/*.html"]
backpressure = true
output_dir   = "out"

block "script#setup" {
  name = "{{.Base}}.sh"
  exec = true
}

block "style" {
  sort   = -1
  prefix = "/* extracted */\n"
}

default {
  include = ["**/*.txt"]
}

sandbox {
  kind     = "shell"
  isolated = false
}
`

func TestParseHCL(t *testing.T) {
	cfg, err := ParseHCL("pipeline.hcl", []byte(hclPipelineSrc))
	require.NoError(t, err)

	assert.Equal(t, []string{"**/*.html"}, cfg.Sources)
	assert.Equal(t, "true", cfg.Backpressure)
	assert.Equal(t, "out", cfg.OutputDir)
	require.Len(t, cfg.Blocks, 2)
	assert.Equal(t, "script#setup", cfg.Blocks[0].ID)
	assert.True(t, cfg.Blocks[0].Exec)
	assert.Equal(t, -1, cfg.Blocks[1].Sort)
	require.NotNil(t, cfg.Default)
	assert.Equal(t, []string{"**/*.txt"}, cfg.Default.Include)
	assert.Equal(t, types.SandboxShell, cfg.Sandbox.Kind)
}

func TestParseHCLDefaultDisabled(t *testing.T) {
	cfg, err := ParseHCL("p.hcl", []byte("default {\n  enabled = false\n}\n"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Default)
}

func TestParseHCLErrors(t *testing.T) {
	for name, src := range map[string]string{
		"syntax":        "block \"x\" {",
		"unknown attr":  "colour = 1",
		"two defaults":  "default {}\ndefault {}\n",
		"bad policy":    "backpressure = \"never\"",
		"two sandboxes": "sandbox {}\nsandbox {}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHCL("p.hcl", []byte(src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, extract.ErrConfiguration), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "blockhead.yaml")
	hclPath := filepath.Join(dir, "blockhead.hcl")
	require.NoError(t, os.WriteFile(yamlPath, []byte("blocks: [{id: foo}]\n"), 0o644))
	require.NoError(t, os.WriteFile(hclPath, []byte("block \"foo\" {}\n"), 0o644))

	for _, p := range []string{yamlPath, hclPath} {
		cfg, err := Load(p)
		require.NoError(t, err, p)
		require.Len(t, cfg.Blocks, 1)
		assert.Equal(t, "foo", cfg.Blocks[0].ID)
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

// process builds an engine from cfg and runs one file through it.
func process(t *testing.T, cfg types.PipelineConfig, r sandbox.Runner, path, body string) []types.Artifact {
	t.Helper()
	cfg.LineFeed = "\n"
	ecfg, err := Build(context.Background(), cfg, r)
	require.NoError(t, err)
	e, err := extract.New(ecfg)
	require.NoError(t, err)

	c := &sink.Collector{}
	require.NoError(t, e.Process(context.Background(), types.Record{Path: path, Contents: []byte(body)}, c))
	return c.Artifacts()
}

func TestBuildBlocks(t *testing.T) {
	body := `<page>
<script lang="sh" order=2>
    echo two
</script>
<script lang="js" order=1>
    console.log(1)
</script>
<script draft>
    skipped
</script>
</page>
`
	cfg := types.PipelineConfig{Blocks: []types.BlockConfig{{
		ID:         "script",
		Name:       "{{.Dir}}/{{.Base}}.{{.Attr \"lang\"}}",
		Dedent:     true,
		Prefix:     "// line {{none}}\n",
		SortAttr:   "order",
		IgnoreAttr: "draft",
	}}}

	got := process(t, cfg, nil, "site/index.html", body)
	require.Len(t, got, 2)
	assert.Equal(t, "site/index.js", got[0].Path)
	assert.Equal(t, "// line {{none}}\nconsole.log(1)", string(got[0].Contents))
	assert.Equal(t, "site/index.sh", got[1].Path)
	assert.Equal(t, "// line {{none}}\necho two", string(got[1].Contents))
}

func TestBuildMatchAttr(t *testing.T) {
	body := "<script lang=\"sh\">\na\n</script>\n<script lang=\"js\">\nb\n</script>\n<script>\nc\n</script>\n"
	cfg := types.PipelineConfig{Blocks: []types.BlockConfig{
		{ID: "script", MatchAttr: map[string]string{"lang": "js"}, Name: "js"},
		{ID: "script", MatchAttr: map[string]string{"lang": ""}, Name: "any-lang"},
	}}

	got := process(t, cfg, nil, "f", body)
	paths := map[string]string{}
	for _, a := range got {
		paths[a.Path] = string(a.Contents)
	}
	assert.Equal(t, map[string]string{"any-lang": "a", "js": "b"}, paths)
}

func TestBuildDefault(t *testing.T) {
	cfg := types.PipelineConfig{
		Blocks: []types.BlockConfig{{ID: "foo"}},
		Default: &types.DefaultConfig{
			Include:  []string{"**/*.txt"},
			Exclude:  []string{"**/skip.txt"},
			Name:     "{{.Dir}}/{{.Base}}.out",
			Trim:     true,
			DropStat: true,
		},
	}

	got := process(t, cfg, nil, "docs/readme.txt", "  hello  \n")
	require.Len(t, got, 1)
	assert.Equal(t, "docs/readme.out", got[0].Path)
	assert.Equal(t, "hello", string(got[0].Contents))
	assert.Nil(t, got[0].Stat)

	assert.Empty(t, process(t, cfg, nil, "docs/skip.txt", "x"))
	assert.Empty(t, process(t, cfg, nil, "docs/readme.md", "x"))
}

func TestBuildExec(t *testing.T) {
	var out strings.Builder
	sh := sandbox.NewShell(sandbox.ShellOptions{Stdout: &out})
	cfg := types.PipelineConfig{Blocks: []types.BlockConfig{{ID: "backend", Exec: true, Trim: true}}}

	got := process(t, cfg, sh, "s.html", "<backend>\n  echo ran\n</backend>\n")
	require.Len(t, got, 1)
	assert.Equal(t, "echo ran", string(got[0].Contents))
	assert.Equal(t, "ran\n", out.String())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.PipelineConfig
	}{
		{name: "exec without sandbox", cfg: types.PipelineConfig{Blocks: []types.BlockConfig{{ID: "x", Exec: true}}}},
		{name: "bad template", cfg: types.PipelineConfig{Blocks: []types.BlockConfig{{ID: "x", Name: "{{.Nope}}"}}}},
		{name: "unclosed template", cfg: types.PipelineConfig{Blocks: []types.BlockConfig{{ID: "x", Name: "{{.Path"}}}},
		{name: "bad default template", cfg: types.PipelineConfig{Default: &types.DefaultConfig{Name: "{{.Nope}}"}}},
		{name: "bad backpressure", cfg: types.PipelineConfig{Backpressure: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), tt.cfg, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, extract.ErrConfiguration), "got %v", err)
		})
	}
}

func TestBuildConflictingAttrFilter(t *testing.T) {
	cfg := types.PipelineConfig{Blocks: []types.BlockConfig{{
		ID:        "script#setup",
		MatchAttr: map[string]string{"lang": "sh"},
	}}}
	ecfg, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)

	_, err = extract.New(ecfg)
	assert.True(t, errors.Is(err, extract.ErrConfiguration))
}

func TestBuildBackpressure(t *testing.T) {
	ecfg, err := Build(context.Background(), types.PipelineConfig{Backpressure: "250"}, nil)
	require.NoError(t, err)
	assert.Equal(t, extract.RetryAfter(250*time.Millisecond), ecfg.Backpressure)
	assert.Nil(t, ecfg.Blocks)
}

func TestDedent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "    a\n      b\n    c", want: "a\n  b\nc"},
		{in: "\ta\n\n\tb", want: "a\n\nb"},
		{in: "a\n  b", want: "a\n  b"},
		{in: "  \t a\n  b", want: "\t a\nb"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Dedent(tt.in), "%q", tt.in)
	}
}

func TestNeedsSandbox(t *testing.T) {
	assert.False(t, NeedsSandbox(types.PipelineConfig{Blocks: []types.BlockConfig{{ID: "a"}}}))
	assert.True(t, NeedsSandbox(types.PipelineConfig{Blocks: []types.BlockConfig{{ID: "a"}, {ID: "b", Exec: true}}}))
}
