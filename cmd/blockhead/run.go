// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blockhead/internal/pipeline"
	"github.com/pdiddy/blockhead/internal/sandbox"
	"github.com/pdiddy/blockhead/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [patterns...]",
	Short: "Execute blocks of files as scripts",
	Long: `Run executes the named blocks (default "backend") of every matching
file, in file and block order, and stops at the first failure. Failures
are reported at the source file and line of the failing statement.

The shell sandbox shares one interpreter across blocks unless --isolated
is set. The container sandbox pipes each block to a fresh container.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	blocks, _ := cmd.Flags().GetStringSlice("block")
	kind, _ := cmd.Flags().GetString("sandbox")
	isolated, _ := cmd.Flags().GetBool("isolated")
	image, _ := cmd.Flags().GetString("image")
	env, _ := cmd.Flags().GetStringToString("env")

	sc := types.SandboxConfig{
		Kind:     types.SandboxKind(kind),
		Isolated: isolated,
		Image:    image,
		Env:      env,
	}
	if sc.Kind == types.SandboxContainer && sc.Image == "" {
		return fmt.Errorf("--image is required with --sandbox container")
	}

	runner, err := newRunner(ctx, sc, os.Stdout)
	if err != nil {
		return err
	}

	paths, err := pipeline.Expand(".", args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files matched %v", args)
	}

	logger.Debug("running blocks", "blocks", blocks, "files", len(paths))
	return sandbox.Import(ctx, runner, paths, blocks...)
}

func init() {
	runCmd.Flags().StringSlice("block", []string{sandbox.DefaultBlock}, "block ids to execute")
	runCmd.Flags().String("sandbox", string(types.SandboxShell), "sandbox: shell or container")
	runCmd.Flags().Bool("isolated", false, "fresh interpreter for every block")
	runCmd.Flags().String("image", "", "container image for --sandbox container")
	runCmd.Flags().StringToString("env", nil, "extra environment variables (KEY=VALUE)")

	rootCmd.AddCommand(runCmd)
}
