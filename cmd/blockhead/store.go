// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blockhead/internal/store"
)

const defaultStorePath = "blockhead.db"

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Query and export the artifact database",
	Long: `Store works on the SQLite database written by extract --store. List
shows stored artifacts filtered by source, block or full-text query; export
writes them as YAML or JSON.`,
}

var storeListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List stored artifacts",
	RunE:  runStoreList,
}

func runStoreList(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.List(context.Background(), queryOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatEntries(os.Stdout, entries, jsonOutput)
}

func formatEntries(w io.Writer, entries []store.Entry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No artifacts found.")
		return nil
	}

	fmt.Fprintf(w, "%-40s  %-10s  %-6s  %-6s  %s\n", "Path", "Block", "Line", "Size", "Preview")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, e := range entries {
		fmt.Fprintf(w, "%-40s  %-10s  %-6d  %-6d  %s\n",
			truncate(e.Path, 40), truncate(e.Block, 10), e.LineOffset, e.Size, preview(e.Contents, 30))
	}
	fmt.Fprintf(w, "\n%d artifacts\n", len(entries))
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	return truncate(s, n)
}

var storeExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export stored artifacts to YAML or JSON",
	RunE:  runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	w := io.Writer(os.Stdout)
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	opts := queryOptsFromFlags(cmd, args)
	switch format {
	case "yaml", "":
		err = s.ExportYAML(context.Background(), w, opts)
	case "json":
		err = s.ExportJSON(context.Background(), w, opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if output != "" {
		logger.Info("exported artifacts", "path", output, "format", format)
	}
	return nil
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	path := stringSetting(cmd, "store", "store_path")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("artifact database %s: %w", path, err)
	}
	return store.Open(path)
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) store.QueryOptions {
	query, _ := cmd.Flags().GetString("query")
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}
	source, _ := cmd.Flags().GetString("source")
	block, _ := cmd.Flags().GetString("block")
	limit, _ := cmd.Flags().GetInt("limit")

	return store.QueryOptions{
		Query:      query,
		Source:     source,
		Block:      block,
		MaxResults: limit,
	}
}

func init() {
	storeCmd.PersistentFlags().String("store", defaultStorePath, "SQLite artifact database")
	storeCmd.PersistentFlags().String("query", "", "full-text search query")
	storeCmd.PersistentFlags().String("source", "", "filter by source file")
	storeCmd.PersistentFlags().String("block", "", "filter by block id")

	storeListCmd.Flags().Int("limit", 0, "maximum results (0 = default)")
	storeListCmd.Flags().Bool("json", false, "output results as JSON")

	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	storeExportCmd.Flags().String("output", "", "write to a file instead of stdout")

	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeExportCmd)
	rootCmd.AddCommand(storeCmd)
}
