// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// BlockConfig declares one extractable block in a pipeline file. It is the
// file-based stand-in for the options a Go caller passes to the engine
// directly: names and transforms are expressed as templates and flags rather
// than functions.
type BlockConfig struct {
	// ID is the tag name, optionally with a required attribute ("script#setup").
	ID string `json:"id" yaml:"id"`

	// Name is a text/template for the artifact path. Fields: .Path, .ID,
	// .Tag, .Dir, .Base, .Ext, .Line and the method .Attr "key".
	// Empty keeps the default "<path>#<tag>".
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Prefix and Suffix wrap the extracted content.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty" yaml:"suffix,omitempty"`

	// Trim removes leading and trailing whitespace from the content.
	Trim bool `json:"trim,omitempty" yaml:"trim,omitempty"`

	// Dedent removes the whitespace prefix shared by all non-blank lines.
	Dedent bool `json:"dedent,omitempty" yaml:"dedent,omitempty"`

	// Sort is a constant emission sort key.
	Sort int `json:"sort,omitempty" yaml:"sort,omitempty"`

	// SortAttr names an attribute whose integer value is the sort key.
	// Missing or non-numeric values fall back to Sort.
	SortAttr string `json:"sort_attr,omitempty" yaml:"sort_attr,omitempty"`

	// MatchAttr restricts opening lines to those whose attributes carry the
	// given values. An empty value only requires the attribute to exist.
	// Cannot be combined with the "tag#attr" id form.
	MatchAttr map[string]string `json:"match_attr,omitempty" yaml:"match_attr,omitempty"`

	// Ignore discards every matched block of this definition.
	Ignore bool `json:"ignore,omitempty" yaml:"ignore,omitempty"`

	// IgnoreAttr discards matched blocks carrying the named attribute.
	IgnoreAttr string `json:"ignore_attr,omitempty" yaml:"ignore_attr,omitempty"`

	// Exec runs the block content through the configured sandbox before
	// emitting it unchanged. A failing script fails the file.
	Exec bool `json:"exec,omitempty" yaml:"exec,omitempty"`
}

// DefaultConfig controls what happens to files in which no block was found.
type DefaultConfig struct {
	// Include lists doublestar globs; when non-empty only matching paths
	// produce a default artifact.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`

	// Exclude lists doublestar globs of paths that never produce one.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// Name is a text/template for the artifact path (default: the source path).
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Trim removes leading and trailing whitespace from the file content.
	Trim bool `json:"trim,omitempty" yaml:"trim,omitempty"`

	// DropStat omits the source file metadata from the artifact.
	DropStat bool `json:"drop_stat,omitempty" yaml:"drop_stat,omitempty"`
}

// SandboxKind selects the execution backend for exec blocks.
type SandboxKind string

const (
	SandboxShell     SandboxKind = "shell"
	SandboxContainer SandboxKind = "container"
)

// SandboxConfig holds settings for running extracted blocks as code.
type SandboxConfig struct {
	// Kind selects the backend: shell (default) or container.
	Kind SandboxKind `json:"kind" yaml:"kind"`

	// Isolated gives every block a fresh interpreter. When false, shell
	// blocks share one interpreter so variables and functions persist.
	Isolated bool `json:"isolated" yaml:"isolated"`

	// Image is the container image for the container backend.
	Image string `json:"image,omitempty" yaml:"image,omitempty"`

	// Command is the command run inside the container; the block content
	// is piped to its stdin.
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`

	// Env holds extra environment variables for shell blocks.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// PipelineConfig groups everything needed to build and run an extraction.
type PipelineConfig struct {
	// Sources lists doublestar globs of input files, relative to the
	// working directory. Patterns starting with "!" exclude.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`

	// Blocks lists the block definitions in precedence order.
	Blocks []BlockConfig `json:"blocks" yaml:"blocks"`

	// Default is nil when blockless files are dropped.
	Default *DefaultConfig `json:"default,omitempty" yaml:"default,omitempty"`

	// Backpressure is "false" (drop), "true" (error), "warn", or a retry
	// delay in milliseconds or as a Go duration.
	Backpressure string `json:"backpressure" yaml:"backpressure"`

	// LineFeed splits and joins lines. Empty uses the host line ending.
	LineFeed string `json:"line_feed,omitempty" yaml:"line_feed,omitempty"`

	// OutputDir receives extracted artifacts as files.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	// StorePath is an optional SQLite database recording every artifact.
	StorePath string `json:"store_path,omitempty" yaml:"store_path,omitempty"`

	// Concurrency bounds the number of files processed at once (default 4).
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// QueueSize bounds the artifact queue between engine and writers.
	QueueSize int `json:"queue_size,omitempty" yaml:"queue_size,omitempty"`

	// Sandbox configures exec blocks.
	Sandbox SandboxConfig `json:"sandbox" yaml:"sandbox"`
}
