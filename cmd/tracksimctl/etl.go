// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func NewETLCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Load the tracks dataset into the catalog",
		Long: `Download or read the tracks CSV, normalize it and replace the catalog tables.
The load is skipped when the catalog is already populated unless --force is given.
Sources may be http(s) URLs, hf://datasets/<owner>/<name>/<file> or local paths.`,
		Args: cobra.NoArgs,
		RunE: makeETLRunner(open),
	}

	cmd.Flags().String("source", "", "Dataset source (default: ETL_SOURCE)")
	cmd.Flags().Bool("force", false, "Reload even if the catalog is populated")

	return cmd
}

func makeETLRunner(open opener) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		env, err := open(cmd.Context(), openOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		source, _ := cmd.Flags().GetString("source")
		if source == "" {
			source = env.Config.ETL.Source
		}
		force, _ := cmd.Flags().GetBool("force")

		stats, err := env.Dataset.Run(cmd.Context(), source, force)
		if err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}

		if wantJSON(cmd) {
			return writeJSON(cmd, map[string]any{
				"source":      source,
				"skipped":     stats.Skipped,
				"source_rows": stats.SourceRows,
				"dropped":     stats.DroppedIncomplete + stats.DroppedDuplicates,
				"tables":      stats.Rows,
				"duration_ms": stats.Duration().Milliseconds(),
			})
		}

		out := cmd.OutOrStdout()
		if stats.Skipped {
			fmt.Fprintln(out, "Catalog already populated; nothing to do (use --force to reload)")
			return nil
		}
		fmt.Fprintf(out, "Loaded %d rows from %s in %s\n", stats.SourceRows, source, stats.Duration().Round(time.Millisecond))
		fmt.Fprintf(out, "Dropped %d incomplete and %d duplicate rows\n", stats.DroppedIncomplete, stats.DroppedDuplicates)
		tables := make([]string, 0, len(stats.Rows))
		for t := range stats.Rows {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			fmt.Fprintf(out, "  %-16s %d\n", t, stats.Rows[t])
		}
		return nil
	}
}
