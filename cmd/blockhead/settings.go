// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/blockhead/internal/config"
	"github.com/pdiddy/blockhead/internal/container"
	"github.com/pdiddy/blockhead/internal/sandbox"
	"github.com/pdiddy/blockhead/pkg/types"
)

// stringSetting resolves a setting: an explicit flag wins, then the
// environment or config file through viper, then the flag default.
func stringSetting(cmd *cobra.Command, flag, key string) string {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		return f.Value.String()
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	v, _ := cmd.Flags().GetString(flag)
	return v
}

func intSetting(cmd *cobra.Command, flag, key string) int {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	v, _ := cmd.Flags().GetInt(flag)
	return v
}

// loadPipeline reads the pipeline file, if any, and applies flag and
// environment overrides.
func loadPipeline(cmd *cobra.Command) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return types.PipelineConfig{}, err
		}
	}

	if cmd.Flags().Lookup("backpressure") != nil {
		cfg.Backpressure = stringSettingOr(cmd, "backpressure", "backpressure", cfg.Backpressure)
		cfg.LineFeed = stringSettingOr(cmd, "line-feed", "line_feed", cfg.LineFeed)
		cfg.OutputDir = stringSettingOr(cmd, "out", "output_dir", cfg.OutputDir)
		cfg.StorePath = stringSettingOr(cmd, "store", "store_path", cfg.StorePath)
		if n := intSetting(cmd, "concurrency", "concurrency"); n != 0 {
			cfg.Concurrency = n
		}
		if n := intSetting(cmd, "queue-size", "queue_size"); n != 0 {
			cfg.QueueSize = n
		}
	}
	return cfg, config.Validate(cfg)
}

// stringSettingOr is stringSetting that keeps current when nothing
// overrides it.
func stringSettingOr(cmd *cobra.Command, flag, key, current string) string {
	if v := stringSetting(cmd, flag, key); v != "" {
		return v
	}
	return current
}

// newRunner builds the sandbox for exec blocks. Script output goes to out.
func newRunner(ctx context.Context, sc types.SandboxConfig, out io.Writer) (sandbox.Runner, error) {
	switch sc.Kind {
	case "", types.SandboxShell:
		env := os.Environ()
		for _, k := range slices.Sorted(maps.Keys(sc.Env)) {
			env = append(env, k+"="+sc.Env[k])
		}
		return sandbox.NewShell(sandbox.ShellOptions{
			Isolated: sc.Isolated,
			Env:      env,
			Stdout:   out,
			Stderr:   os.Stderr,
		}), nil

	case types.SandboxContainer:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		if err := rt.ImageExists(ctx, sc.Image); err != nil {
			logger.Warn("image not present locally, the runtime will pull it", "image", sc.Image, "runtime", rt.Name())
		}
		return &sandbox.Container{
			Runtime: rt,
			Image:   sc.Image,
			Command: sc.Command,
			Env:     sc.Env,
			Stdout:  out,
			Stderr:  os.Stderr,
		}, nil

	default:
		return nil, fmt.Errorf("unknown sandbox kind %q", sc.Kind)
	}
}
