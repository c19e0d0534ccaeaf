// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewTrainCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and persist a new model",
		Long: `Fit the normalizer, PCA projection and k-d tree on the feature table, save the
result as the next model version and prune versions beyond RECOMMEND_KEEP_VERSIONS.
A running server picks the new model up on its next start with REUSE_MODEL=true.`,
		Args: cobra.NoArgs,
		RunE: makeTrainRunner(open),
	}

	cmd.Flags().Int("dimensions", 0, "Principal components to keep (default: RECOMMEND_DIMENSIONS)")
	cmd.Flags().Int("leaf-size", 0, "k-d tree leaf size (default: RECOMMEND_LEAF_SIZE)")
	cmd.Flags().Bool("no-save", false, "Train without persisting the model")

	return cmd
}

func makeTrainRunner(open opener) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		env, err := open(cmd.Context(), openOptions{engine: true})
		if err != nil {
			return err
		}
		defer env.Close()

		dims, _ := cmd.Flags().GetInt("dimensions")
		if dims <= 0 {
			dims = env.Config.Recommend.Dimensions
		}
		leaf, _ := cmd.Flags().GetInt("leaf-size")
		if leaf <= 0 {
			leaf = env.Config.Recommend.LeafSize
		}

		if err := env.Engine.TrainWith(cmd.Context(), dims, leaf); err != nil {
			return fmt.Errorf("train: %w", err)
		}

		pruned := 0
		if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
			if err := env.Engine.Save(cmd.Context()); err != nil {
				return fmt.Errorf("save model: %w", err)
			}
			if pruned, err = env.Engine.Prune(cmd.Context()); err != nil {
				return fmt.Errorf("prune models: %w", err)
			}
		}

		status := env.Engine.Status()
		if wantJSON(cmd) {
			return writeJSON(cmd, map[string]any{
				"status": status,
				"pruned": pruned,
			})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Trained on %d tracks: %d dimensions, leaf size %d, %d ms\n",
			status.TrackCount, status.Dimensions, status.LeafSize, status.LastTrainingDurationMS)
		if status.ModelVersion > 0 {
			fmt.Fprintf(out, "Saved as version %d (%d old versions pruned)\n", status.ModelVersion, pruned)
		}
		return nil
	}
}
