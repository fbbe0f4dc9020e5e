// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*~",
	"**/.blockhead-*.tmp",
}

// WatchOptions configures Watch.
type WatchOptions struct {
	// Base is the directory to watch recursively.
	Base string
	// Patterns select the files that trigger OnChange. Empty selects all.
	Patterns []string
	// Ignore adds patterns that never trigger OnChange.
	Ignore []string
	// Debounce is the quiet period before OnChange fires.
	Debounce time.Duration
	// OnChange receives the changed files, joined with Base.
	OnChange func(ctx context.Context, changed []string) error
	// Log receives watcher diagnostics.
	Log *log.Logger
}

// Watch blocks until ctx is done, calling OnChange with batches of changed
// files. Events inside the debounce window are coalesced. Callbacks never
// overlap; changes arriving during a callback are delivered afterwards.
func Watch(ctx context.Context, opts WatchOptions) error {
	base := opts.Base
	if base == "" {
		base = "."
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := opts.Log
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ignores := append(slices.Clone(defaultIgnores), opts.Ignore...)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := addDirs(fsw, base, ignores, logger); err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		fireMu  sync.Mutex
	)

	fire := func() {
		fireMu.Lock()
		defer fireMu.Unlock()
		if ctx.Err() != nil {
			return
		}

		mu.Lock()
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()
		if len(changed) == 0 || opts.OnChange == nil {
			return
		}

		if err := opts.OnChange(ctx, changed); err != nil {
			logger.Error("watch callback failed", "err", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher event channel closed")
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}

			rel, err := filepath.Rel(base, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			if MatchAny(ignores, rel) {
				continue
			}

			if evt.Has(fsnotify.Create) {
				if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
					if err := fsw.Add(evt.Name); err != nil {
						logger.Warn("cannot watch new directory", "path", evt.Name, "err", err)
					}
					continue
				}
			}
			if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
				continue
			}
			if len(opts.Patterns) > 0 && !MatchAny(opts.Patterns, rel) {
				continue
			}

			logger.Debug("change detected", "path", evt.Name, "op", evt.Op.String())
			mu.Lock()
			pending[filepath.Join(base, rel)] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(debounce, fire)
			} else {
				timer.Reset(debounce)
			}
			mu.Unlock()

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logger.Warn("watch error", "err", err)
		}
	}
}

func addDirs(fsw *fsnotify.Watcher, base string, ignores []string, logger *log.Logger) error {
	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(base, path); relErr == nil && rel != "." {
			if MatchAny(ignores, rel) || MatchAny(ignores, rel+"/") {
				return filepath.SkipDir
			}
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", base, err)
	}
	return nil
}
