// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config reads pipeline files and compiles them into engine
// settings. YAML and HCL files describe the same PipelineConfig.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/blockhead/internal/extract"
	"github.com/pdiddy/blockhead/pkg/types"
)

// Load reads a pipeline file. The format follows the extension: .hcl for
// HCL, anything else is YAML.
func Load(path string) (types.PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.PipelineConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg types.PipelineConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		cfg, err = ParseHCL(path, data)
	default:
		cfg, err = ParseYAML(data)
	}
	if err != nil {
		return types.PipelineConfig{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}

// yamlPipeline mirrors PipelineConfig with raw nodes for the keys that
// accept more than one shape.
type yamlPipeline struct {
	Sources      []string            `yaml:"sources"`
	Blocks       yaml.Node           `yaml:"blocks"`
	Default      yaml.Node           `yaml:"default"`
	Backpressure yaml.Node           `yaml:"backpressure"`
	LineFeed     string              `yaml:"line_feed"`
	OutputDir    string              `yaml:"output_dir"`
	StorePath    string              `yaml:"store_path"`
	Concurrency  int                 `yaml:"concurrency"`
	QueueSize    int                 `yaml:"queue_size"`
	Sandbox      types.SandboxConfig `yaml:"sandbox"`
}

// ParseYAML decodes a YAML pipeline. Unknown keys are rejected.
//
// blocks is a sequence of block mappings, or a mapping from id to block
// mapping (or null) taken in document order. default is false, true or a
// mapping. backpressure is a scalar understood by extract.ParseBackpressure.
func ParseYAML(data []byte) (types.PipelineConfig, error) {
	var raw yamlPipeline
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return types.PipelineConfig{}, &extract.ConfigError{Message: err.Error()}
	}

	cfg := types.PipelineConfig{
		Sources:     raw.Sources,
		LineFeed:    raw.LineFeed,
		OutputDir:   raw.OutputDir,
		StorePath:   raw.StorePath,
		Concurrency: raw.Concurrency,
		QueueSize:   raw.QueueSize,
		Sandbox:     raw.Sandbox,
	}

	var err error
	if cfg.Blocks, err = yamlBlocks(&raw.Blocks); err != nil {
		return types.PipelineConfig{}, err
	}
	if cfg.Default, err = yamlDefault(&raw.Default); err != nil {
		return types.PipelineConfig{}, err
	}
	if cfg.Backpressure, err = yamlBackpressure(&raw.Backpressure); err != nil {
		return types.PipelineConfig{}, err
	}
	return cfg, Validate(cfg)
}

func yamlBlocks(n *yaml.Node) ([]types.BlockConfig, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.SequenceNode:
		var out []types.BlockConfig
		if err := n.Decode(&out); err != nil {
			return nil, &extract.ConfigError{Message: "blocks: " + err.Error()}
		}
		return out, nil
	case yaml.MappingNode:
		out := make([]types.BlockConfig, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			id, val := n.Content[i].Value, n.Content[i+1]
			var bc types.BlockConfig
			switch {
			case isNull(val):
			case val.Kind == yaml.MappingNode:
				if err := val.Decode(&bc); err != nil {
					return nil, &extract.ConfigError{ID: id, Message: err.Error()}
				}
			default:
				return nil, &extract.ConfigError{ID: id, Message: "block must be a mapping or null"}
			}
			bc.ID = id
			out = append(out, bc)
		}
		return out, nil
	default:
		if isNull(n) {
			return nil, nil
		}
		return nil, &extract.ConfigError{Message: "blocks must be a sequence or a mapping"}
	}
}

func yamlDefault(n *yaml.Node) (*types.DefaultConfig, error) {
	switch {
	case n.Kind == 0, isNull(n):
		return nil, nil
	case n.Kind == yaml.ScalarNode && n.ShortTag() == "!!bool":
		var on bool
		if err := n.Decode(&on); err != nil {
			return nil, &extract.ConfigError{Message: "default: " + err.Error()}
		}
		if !on {
			return nil, nil
		}
		return &types.DefaultConfig{}, nil
	case n.Kind == yaml.MappingNode:
		var d types.DefaultConfig
		if err := n.Decode(&d); err != nil {
			return nil, &extract.ConfigError{Message: "default: " + err.Error()}
		}
		return &d, nil
	default:
		return nil, &extract.ConfigError{Message: fmt.Sprintf("default must be true, false or a mapping, got %q", n.Value)}
	}
}

func yamlBackpressure(n *yaml.Node) (string, error) {
	switch {
	case n.Kind == 0, isNull(n):
		return "", nil
	case n.Kind == yaml.ScalarNode:
		return n.Value, nil
	default:
		return "", &extract.ConfigError{Message: "backpressure must be a scalar"}
	}
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

// HCL wire format.
type hclPipeline struct {
	Sources      []string      `hcl:"sources,optional"`
	Backpressure string        `hcl:"backpressure,optional"`
	LineFeed     string        `hcl:"line_feed,optional"`
	OutputDir    string        `hcl:"output_dir,optional"`
	StorePath    string        `hcl:"store_path,optional"`
	Concurrency  int           `hcl:"concurrency,optional"`
	QueueSize    int           `hcl:"queue_size,optional"`
	Blocks       []*hclBlock   `hcl:"block,block"`
	Default      []*hclDefault `hcl:"default,block"`
	Sandbox      []*hclSandbox `hcl:"sandbox,block"`
}

type hclBlock struct {
	ID         string            `hcl:"id,label"`
	Name       string            `hcl:"name,optional"`
	Prefix     string            `hcl:"prefix,optional"`
	Suffix     string            `hcl:"suffix,optional"`
	Trim       bool              `hcl:"trim,optional"`
	Dedent     bool              `hcl:"dedent,optional"`
	Sort       int               `hcl:"sort,optional"`
	SortAttr   string            `hcl:"sort_attr,optional"`
	MatchAttr  map[string]string `hcl:"match_attr,optional"`
	Ignore     bool              `hcl:"ignore,optional"`
	IgnoreAttr string            `hcl:"ignore_attr,optional"`
	Exec       bool              `hcl:"exec,optional"`
}

type hclDefault struct {
	Enabled  *bool    `hcl:"enabled,optional"`
	Include  []string `hcl:"include,optional"`
	Exclude  []string `hcl:"exclude,optional"`
	Name     string   `hcl:"name,optional"`
	Trim     bool     `hcl:"trim,optional"`
	DropStat bool     `hcl:"drop_stat,optional"`
}

type hclSandbox struct {
	Kind     string            `hcl:"kind,optional"`
	Isolated bool              `hcl:"isolated,optional"`
	Image    string            `hcl:"image,optional"`
	Command  []string          `hcl:"command,optional"`
	Env      map[string]string `hcl:"env,optional"`
}

// ParseHCL decodes an HCL pipeline. Blocks are "block" blocks labelled
// with their id, in file order. A "default" block enables the fallback
// unless it sets enabled = false.
func ParseHCL(filename string, data []byte) (types.PipelineConfig, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return types.PipelineConfig{}, &extract.ConfigError{Message: diags.Error()}
	}

	var raw hclPipeline
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return types.PipelineConfig{}, &extract.ConfigError{Message: diags.Error()}
	}

	cfg := types.PipelineConfig{
		Sources:      raw.Sources,
		Backpressure: raw.Backpressure,
		LineFeed:     raw.LineFeed,
		OutputDir:    raw.OutputDir,
		StorePath:    raw.StorePath,
		Concurrency:  raw.Concurrency,
		QueueSize:    raw.QueueSize,
	}

	for _, b := range raw.Blocks {
		cfg.Blocks = append(cfg.Blocks, types.BlockConfig{
			ID:         b.ID,
			Name:       b.Name,
			Prefix:     b.Prefix,
			Suffix:     b.Suffix,
			Trim:       b.Trim,
			Dedent:     b.Dedent,
			Sort:       b.Sort,
			SortAttr:   b.SortAttr,
			MatchAttr:  b.MatchAttr,
			Ignore:     b.Ignore,
			IgnoreAttr: b.IgnoreAttr,
			Exec:       b.Exec,
		})
	}

	switch len(raw.Default) {
	case 0:
	case 1:
		d := raw.Default[0]
		if d.Enabled == nil || *d.Enabled {
			cfg.Default = &types.DefaultConfig{
				Include:  d.Include,
				Exclude:  d.Exclude,
				Name:     d.Name,
				Trim:     d.Trim,
				DropStat: d.DropStat,
			}
		}
	default:
		return types.PipelineConfig{}, &extract.ConfigError{Message: "at most one default block is allowed"}
	}

	switch len(raw.Sandbox) {
	case 0:
	case 1:
		s := raw.Sandbox[0]
		cfg.Sandbox = types.SandboxConfig{
			Kind:     types.SandboxKind(s.Kind),
			Isolated: s.Isolated,
			Image:    s.Image,
			Command:  s.Command,
			Env:      s.Env,
		}
	default:
		return types.PipelineConfig{}, &extract.ConfigError{Message: "at most one sandbox block is allowed"}
	}

	return cfg, Validate(cfg)
}

// Validate checks settings that do not need the engine to be built.
func Validate(cfg types.PipelineConfig) error {
	if _, err := extract.ParseBackpressure(cfg.Backpressure); err != nil {
		return err
	}
	if cfg.Concurrency < 0 {
		return &extract.ConfigError{Message: fmt.Sprintf("concurrency must not be negative, got %d", cfg.Concurrency)}
	}
	if cfg.QueueSize < 0 {
		return &extract.ConfigError{Message: fmt.Sprintf("queue_size must not be negative, got %d", cfg.QueueSize)}
	}
	switch cfg.Sandbox.Kind {
	case "", types.SandboxShell:
	case types.SandboxContainer:
		if cfg.Sandbox.Image == "" {
			return &extract.ConfigError{Message: "container sandbox needs an image"}
		}
	default:
		return &extract.ConfigError{Message: fmt.Sprintf("unknown sandbox kind %q", cfg.Sandbox.Kind)}
	}
	for i, b := range cfg.Blocks {
		if strings.TrimSpace(b.ID) == "" {
			return &extract.ConfigError{Message: fmt.Sprintf("block %d has no id", i+1)}
		}
	}
	return nil
}
