// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/blockhead/pkg/types"
)

// ErrPathInvalid is returned for artifact paths that would land outside the
// output root.
var ErrPathInvalid = errors.New("invalid artifact path")

const (
	defaultFileMode fs.FileMode = 0o644
	defaultDirMode  fs.FileMode = 0o755
)

// Dir writes artifacts as files under Root. Files are written to a temp
// file in the target directory and renamed into place.
type Dir struct {
	// Root is the output directory.
	Root string
	// Base is stripped from artifact paths before joining them to Root,
	// so "src/a.html#foo" with Base "src" lands at Root/a.html#foo.
	Base string
}

// NewDir returns a Dir rooted at root.
func NewDir(root, base string) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("output directory: %w", ErrPathInvalid)
	}
	return &Dir{Root: root, Base: base}, nil
}

// Target returns the file path an artifact would be written to.
func (d *Dir) Target(artifactPath string) (string, error) {
	rel := filepath.Clean(artifactPath)
	if d.Base != "" {
		if r, err := filepath.Rel(filepath.Clean(d.Base), rel); err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			rel = r
		}
	}

	switch {
	case rel == "." || rel == "":
		return "", fmt.Errorf("%q: %w", artifactPath, ErrPathInvalid)
	case filepath.IsAbs(rel), filepath.VolumeName(rel) != "":
		return "", fmt.Errorf("%q is absolute: %w", artifactPath, ErrPathInvalid)
	case rel == "..", strings.HasPrefix(rel, ".."+string(filepath.Separator)):
		return "", fmt.Errorf("%q escapes the output directory: %w", artifactPath, ErrPathInvalid)
	}
	return filepath.Join(d.Root, rel), nil
}

// Write stores a. Null directory records become directories.
func (d *Dir) Write(ctx context.Context, a types.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest, err := d.Target(a.Path)
	if err != nil {
		return err
	}

	if a.Contents == nil && a.Stat != nil && a.Stat.IsDir() {
		if err := os.MkdirAll(dest, defaultDirMode); err != nil {
			return fmt.Errorf("creating %s: %w", dest, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), defaultDirMode); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dest, err)
	}
	return writeAtomic(dest, a.Contents, fileMode(a.Stat))
}

func fileMode(st fs.FileInfo) fs.FileMode {
	if st == nil || st.IsDir() || st.Mode().Perm() == 0 {
		return defaultFileMode
	}
	return st.Mode().Perm()
}

func writeAtomic(dest string, data []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".blockhead-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	if writeErr == nil {
		writeErr = tmp.Sync()
	}
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", dest, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting mode on %s: %w", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
