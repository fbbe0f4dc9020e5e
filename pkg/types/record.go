// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"io"
	"io/fs"
)

// Record is one file handed to the extraction engine by the surrounding
// pipeline. Exactly one of Contents or Stream is normally set; a record with
// neither is a null record and passes through the engine untouched.
type Record struct {
	// Path is the source path of the file (e.g. "site/index.html").
	Path string `json:"path" yaml:"path"`

	// Contents holds the fully buffered file body.
	Contents []byte `json:"-" yaml:"-"`

	// Stream holds an unbuffered body. The engine rejects streamed records.
	Stream io.Reader `json:"-" yaml:"-"`

	// Stat is the file metadata copied onto emitted artifacts.
	Stat fs.FileInfo `json:"-" yaml:"-"`
}

// IsNull reports whether the record carries no body at all.
func (r Record) IsNull() bool {
	return r.Contents == nil && r.Stream == nil
}

// IsStream reports whether the record carries an unbuffered body.
func (r Record) IsStream() bool {
	return r.Stream != nil
}

// Artifact is one output unit emitted by the engine: either a block extracted
// from a file or a whole blockless file produced by the default rule.
type Artifact struct {
	// Path is the artifact identifier, by default "<source>#<tag>".
	Path string `json:"path" yaml:"path"`

	// Contents is the transformed block body.
	Contents []byte `json:"-" yaml:"-"`

	// Stat is copied from the source record; it may be nil.
	Stat fs.FileInfo `json:"-" yaml:"-"`

	// Source is the path of the file the artifact came from.
	Source string `json:"source" yaml:"source"`

	// Block is the id of the block definition that produced the artifact.
	// Empty for default and pass-through artifacts.
	Block string `json:"block,omitempty" yaml:"block,omitempty"`

	// LineOffset is the 1-based line of the opening delimiter; block
	// content starts on the following line. Zero for whole-file artifacts.
	LineOffset int `json:"line_offset" yaml:"line_offset"`
}

// ArtifactFromRecord wraps a record as an artifact without changing it.
func ArtifactFromRecord(r Record) Artifact {
	return Artifact{
		Path:     r.Path,
		Contents: r.Contents,
		Stat:     r.Stat,
		Source:   r.Path,
	}
}
