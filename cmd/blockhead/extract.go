// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blockhead/internal/config"
	"github.com/pdiddy/blockhead/internal/extract"
	"github.com/pdiddy/blockhead/internal/pipeline"
	"github.com/pdiddy/blockhead/internal/sandbox"
	"github.com/pdiddy/blockhead/internal/sink"
	"github.com/pdiddy/blockhead/internal/store"
	"github.com/pdiddy/blockhead/pkg/types"
)

const (
	defaultQueueSize = 64

	// defaultBackpressure retries refused artifacts. The queue does not keep
	// what it refuses, so warn and drop would lose artifacts whenever the
	// writers fall behind.
	defaultBackpressure = "10ms"
)

var extractCmd = &cobra.Command{
	Use:   "extract [patterns...]",
	Short: "Extract blocks from files into artifacts",
	Long: `Extract reads every file matching the patterns (or the pipeline's
sources), splits it into block artifacts and writes them to --out and/or
--store. Patterns are doublestar globs; a leading "!" excludes.

With --dry-run artifacts are listed instead of written. With --watch the
command keeps running and re-extracts files as they change.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	cfg = withQueueDefaults(cfg)
	if bp, _ := extract.ParseBackpressure(cfg.Backpressure); bp.Policy != extract.PolicyRetry && bp.Policy != extract.PolicyError {
		logger.Warn("artifacts refused by a full queue are discarded under this policy", "backpressure", bp)
	}

	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Sources
	}
	if len(patterns) == 0 {
		return fmt.Errorf("no input: pass file patterns or set sources in the pipeline file")
	}

	var runner sandbox.Runner
	if config.NeedsSandbox(cfg) {
		if runner, err = newRunner(ctx, cfg.Sandbox, os.Stderr); err != nil {
			return err
		}
	}

	ecfg, err := config.Build(ctx, cfg, runner)
	if err != nil {
		return err
	}
	engine, err := extract.New(ecfg, extract.WithLogger(logger))
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	b, err := newBatch(engine, cfg.OutputDir, cfg.StorePath, dryRun)
	if err != nil {
		return err
	}
	defer b.close()
	b.opts = pipeline.Options{Concurrency: cfg.Concurrency}
	b.queueSize = cfg.QueueSize

	paths, err := pipeline.Expand(".", patterns)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Warn("no files matched", "patterns", strings.Join(patterns, " "))
	}

	summary, err := b.run(ctx, paths)
	if err != nil {
		return err
	}
	if dryRun {
		b.list()
	}

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		if summary.HasFailures() {
			return fmt.Errorf("%d file(s) failed extraction", summary.Failed)
		}
		return nil
	}

	include, exclude := splitPatterns(patterns)
	logger.Info("watching for changes", "patterns", strings.Join(include, " "))
	return pipeline.Watch(ctx, pipeline.WatchOptions{
		Base:     ".",
		Patterns: include,
		Ignore:   exclude,
		Log:      logger,
		OnChange: func(ctx context.Context, changed []string) error {
			if err := b.forget(ctx, changed); err != nil {
				return err
			}
			_, err := b.run(ctx, changed)
			if dryRun {
				b.list()
			}
			return err
		},
	})
}

// withQueueDefaults fills the settings the queued writers depend on.
func withQueueDefaults(cfg types.PipelineConfig) types.PipelineConfig {
	if cfg.Backpressure == "" {
		cfg.Backpressure = defaultBackpressure
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return cfg
}

// splitPatterns separates include globs from "!" exclusions.
func splitPatterns(patterns []string) (include, exclude []string) {
	for _, p := range patterns {
		if rest, ok := strings.CutPrefix(p, "!"); ok {
			exclude = append(exclude, rest)
		} else {
			include = append(include, p)
		}
	}
	return include, exclude
}

// batch owns the writers of one extract invocation.
type batch struct {
	engine    *extract.Engine
	writer    sink.Writer
	store     *store.Store
	collector *sink.Collector
	opts      pipeline.Options
	queueSize int
	out       io.Writer
}

func newBatch(engine *extract.Engine, outDir, storePath string, dryRun bool) (*batch, error) {
	b := &batch{engine: engine, out: os.Stdout}
	if dryRun {
		b.collector = &sink.Collector{}
		b.writer = b.collector
		return b, nil
	}

	var writers []sink.Writer
	if outDir != "" {
		d, err := sink.NewDir(outDir, "")
		if err != nil {
			return nil, err
		}
		writers = append(writers, d)
	}
	if storePath != "" {
		s, err := store.Open(storePath)
		if err != nil {
			return nil, err
		}
		b.store = s
		writers = append(writers, s)
	}
	if len(writers) == 0 {
		return nil, fmt.Errorf("no output: set --out or --store, or use --dry-run")
	}
	b.writer = sink.Multi(writers...)
	return b, nil
}

// run processes paths through a fresh queue drained into the writers.
func (b *batch) run(ctx context.Context, paths []string) (pipeline.Summary, error) {
	size := b.queueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	q := sink.NewQueue(size)

	// A failed writer stops the batch; otherwise retrying pushes never end.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	drained := make(chan error, 1)
	go func() {
		err := q.Drain(ctx, b.writer)
		if err != nil {
			cancel()
		}
		drained <- err
	}()

	summary, runErr := pipeline.Run(ctx, b.engine, paths, q, b.opts, b.out)
	q.Close()
	if err := <-drained; err != nil {
		return summary, fmt.Errorf("writing artifacts: %w", err)
	}
	return summary, runErr
}

// forget drops stored artifacts of sources about to be re-extracted, so
// blocks removed from a file do not linger in the store.
func (b *batch) forget(ctx context.Context, sources []string) error {
	if b.store == nil {
		return nil
	}
	for _, src := range sources {
		n, err := b.store.DeleteSource(ctx, src)
		if err != nil {
			return err
		}
		logger.Debug("dropped stored artifacts", "source", src, "count", n)
	}
	return nil
}

func (b *batch) list() {
	for _, a := range b.collector.Artifacts() {
		fmt.Fprintf(b.out, "%s\t%d bytes\t%s:%d\n", a.Path, len(a.Contents), a.Source, a.LineOffset)
	}
}

func (b *batch) close() {
	if b.store != nil {
		b.store.Close()
	}
}

func init() {
	extractCmd.Flags().String("out", "", "output directory for artifacts")
	extractCmd.Flags().String("store", "", "SQLite artifact database")
	extractCmd.Flags().String("backpressure", "", "policy when the writer falls behind: false (drop), true (error), warn, or a retry delay (250, 1s) (default 10ms retry)")
	extractCmd.Flags().String("line-feed", "", "line separator (default: host line ending)")
	extractCmd.Flags().Int("concurrency", 0, "files processed at once (default 4)")
	extractCmd.Flags().Int("queue-size", 0, "artifacts buffered before backpressure (default 64)")
	extractCmd.Flags().Bool("dry-run", false, "list artifacts instead of writing them")
	extractCmd.Flags().Bool("watch", false, "re-extract files when they change")

	rootCmd.AddCommand(extractCmd)
}
