// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/blockhead/internal/attrs"
	"github.com/pdiddy/blockhead/internal/extract"
	"github.com/pdiddy/blockhead/internal/pipeline"
	"github.com/pdiddy/blockhead/internal/sandbox"
	"github.com/pdiddy/blockhead/pkg/types"
)

// Build compiles a pipeline into engine settings. Blocks with exec set run
// through r, which may be nil when no block needs it.
func Build(ctx context.Context, cfg types.PipelineConfig, r sandbox.Runner) (extract.Config, error) {
	if err := Validate(cfg); err != nil {
		return extract.Config{}, err
	}

	bp, err := extract.ParseBackpressure(cfg.Backpressure)
	if err != nil {
		return extract.Config{}, err
	}

	blocks := make([]extract.Options, 0, len(cfg.Blocks))
	for _, bc := range cfg.Blocks {
		opt, err := blockOptions(ctx, bc, r)
		if err != nil {
			return extract.Config{}, err
		}
		blocks = append(blocks, opt)
	}

	def, err := defaultRule(cfg.Default)
	if err != nil {
		return extract.Config{}, err
	}

	out := extract.Config{
		Default:      def,
		Backpressure: bp,
		LineFeed:     cfg.LineFeed,
	}
	if len(blocks) > 0 {
		out.Blocks = blocks
	}
	return out, nil
}

// NeedsSandbox reports whether any block executes its content.
func NeedsSandbox(cfg types.PipelineConfig) bool {
	for _, b := range cfg.Blocks {
		if b.Exec {
			return true
		}
	}
	return false
}

func blockOptions(ctx context.Context, bc types.BlockConfig, r sandbox.Runner) (extract.Options, error) {
	opt := extract.Options{ID: bc.ID, Sort: extract.SortAt(bc.Sort)}

	if bc.Name != "" {
		name, err := nameTemplate(bc.ID, bc.Name)
		if err != nil {
			return extract.Options{}, err
		}
		opt.Name = name
	}

	if bc.SortAttr != "" {
		key, fallback := bc.SortAttr, bc.Sort
		opt.Sort = extract.SortBy(func(_ string, m extract.Match) int {
			if v, ok := m.Attr.Get(key); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
					return n
				}
			}
			return fallback
		})
	}

	if len(bc.MatchAttr) > 0 {
		want := bc.MatchAttr
		opt.Filter = extract.If(func(_ string, m extract.Match) bool {
			for k, v := range want {
				got, ok := m.Attr.Get(k)
				if !ok || (v != "" && got != v) {
					return false
				}
			}
			return true
		})
	}

	switch {
	case bc.Ignore:
		opt.Ignore = extract.Always(true)
	case bc.IgnoreAttr != "":
		attr := bc.IgnoreAttr
		opt.Ignore = extract.If(func(_ string, m extract.Match) bool { return m.Attr.Has(attr) })
	}

	var exec extract.TransformFunc
	if bc.Exec {
		if r == nil {
			return extract.Options{}, &extract.ConfigError{ID: bc.ID, Message: "exec requires a sandbox"}
		}
		exec = sandbox.Exec(ctx, r)
	}

	if exec != nil || bc.Dedent || bc.Trim || bc.Prefix != "" || bc.Suffix != "" {
		opt.Transform = func(content, path string, m extract.Match) (string, error) {
			if exec != nil {
				if _, err := exec(content, path, m); err != nil {
					return "", err
				}
			}
			return shape(content, bc.Dedent, bc.Trim, bc.Prefix, bc.Suffix), nil
		}
	}
	return opt, nil
}

func defaultRule(dc *types.DefaultConfig) (*extract.Default, error) {
	if dc == nil {
		return nil, nil
	}

	d := &extract.Default{DropStat: dc.DropStat}
	if len(dc.Include) > 0 || len(dc.Exclude) > 0 {
		include, exclude := dc.Include, dc.Exclude
		d.Include = func(path string) bool {
			if len(include) > 0 && !pipeline.MatchAny(include, path) {
				return false
			}
			return !pipeline.MatchAny(exclude, path)
		}
	}
	if dc.Name != "" {
		tmpl, err := parseTemplate("default", dc.Name)
		if err != nil {
			return nil, err
		}
		d.Name = func(path string, _ *extract.Default) string {
			out, err := render(tmpl, newNameData(path, extract.Match{}))
			if err != nil {
				return path
			}
			return out
		}
	}
	if dc.Trim {
		d.Transform = func(content, _ string) (string, error) {
			return strings.TrimSpace(content), nil
		}
	}
	return d, nil
}

// shape applies the declarative content edits in a fixed order: dedent,
// trim, then wrap.
func shape(content string, dedent, trim bool, prefix, suffix string) string {
	if dedent {
		content = Dedent(content)
	}
	if trim {
		content = strings.TrimSpace(content)
	}
	return prefix + content + suffix
}

// Dedent removes the longest whitespace prefix shared by all non-blank
// lines.
func Dedent(s string) string {
	lines := strings.Split(s, "\n")
	prefix := ""
	first := true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		indent := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		if first {
			prefix, first = indent, false
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if prefix == "" {
		return s
	}
	for i, l := range lines {
		lines[i] = strings.TrimPrefix(l, prefix)
	}
	return strings.Join(lines, "\n")
}

// nameData is the template context for artifact names.
type nameData struct {
	Path string
	ID   string
	Tag  string
	Dir  string
	Base string
	Ext  string
	Line int

	attr attrs.Attributes
}

func newNameData(path string, m extract.Match) nameData {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return nameData{
		Path: path,
		ID:   m.ID,
		Tag:  m.Tag,
		Dir:  filepath.Dir(path),
		Base: strings.TrimSuffix(base, ext),
		Ext:  ext,
		Line: m.LineOffset,
		attr: m.Attr,
	}
}

// Attr returns an attribute value of the opening line, "" when absent.
func (d nameData) Attr(key string) string {
	v, _ := d.attr.Get(key)
	return v
}

func parseTemplate(id, text string) (*template.Template, error) {
	tmpl, err := template.New(id).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, &extract.ConfigError{ID: id, Message: "name template: " + err.Error()}
	}
	// Execute once so unknown fields surface now rather than per file.
	if _, err := render(tmpl, newNameData("dir/file.ext", extract.Match{ID: id, Tag: id})); err != nil {
		return nil, &extract.ConfigError{ID: id, Message: "name template: " + err.Error()}
	}
	return tmpl, nil
}

func nameTemplate(id, text string) (extract.NameFunc, error) {
	tmpl, err := parseTemplate(id, text)
	if err != nil {
		return nil, err
	}
	return func(path string, m extract.Match) string {
		out, err := render(tmpl, newNameData(path, m))
		if err != nil {
			return path + "#" + m.ID
		}
		return out
	}, nil
}

func render(tmpl *template.Template, data nameData) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering name: %w", err)
	}
	return b.String(), nil
}
