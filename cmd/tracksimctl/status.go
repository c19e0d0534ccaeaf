// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tracksim/internal/recommend"
)

func NewStatusCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted model",
		Long:  `Load the latest persisted model and print its metadata.`,
		Args:  cobra.NoArgs,
		RunE:  makeStatusRunner(open),
	}

	return cmd
}

func makeStatusRunner(open opener) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		env, err := open(cmd.Context(), openOptions{engine: true, reuse: true})
		if errors.Is(err, recommend.ErrArtifactNotFound) {
			if wantJSON(cmd) {
				return writeJSON(cmd, recommend.Status{State: recommend.StateUninitialized.String()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No persisted model; run `tracksimctl train`")
			return nil
		}
		if err != nil {
			return err
		}
		defer env.Close()

		status := env.Engine.Status()
		if wantJSON(cmd) {
			return writeJSON(cmd, status)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "State:        %s\n", status.State)
		fmt.Fprintf(out, "Version:      %d\n", status.ModelVersion)
		fmt.Fprintf(out, "Tracks:       %d\n", status.TrackCount)
		fmt.Fprintf(out, "Dimensions:   %d\n", status.Dimensions)
		fmt.Fprintf(out, "Leaf size:    %d\n", status.LeafSize)
		fmt.Fprintf(out, "Features:     %s\n", strings.Join(status.FeatureColumns, ", "))
		if !status.LastTrainedAt.IsZero() {
			fmt.Fprintf(out, "Trained at:   %s\n", status.LastTrainedAt.Format(time.RFC3339))
		}
		if len(status.ExplainedVariance) > 0 {
			total := 0.0
			for _, v := range status.ExplainedVariance {
				total += v
			}
			fmt.Fprintf(out, "Variance:     %.1f%%\n", total*100)
		}
		return nil
	}
}
