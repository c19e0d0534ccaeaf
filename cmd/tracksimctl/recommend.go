// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func NewRecommendCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <track_id>...",
		Short: "Find tracks similar to the given ones",
		Long: `Query the persisted model for the nearest neighbours of each track id.
With --train the model is fitted in-process first instead of loaded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: makeRecommendRunner(open),
	}

	cmd.Flags().IntP("n-recs", "n", 10, "Neighbours per track")
	cmd.Flags().Bool("train", false, "Train a fresh model instead of loading the saved one")

	return cmd
}

func makeRecommendRunner(open opener) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		nRecs, _ := cmd.Flags().GetInt("n-recs")
		if nRecs < 1 {
			return errors.New("--n-recs must be positive")
		}
		train, _ := cmd.Flags().GetBool("train")

		env, err := open(cmd.Context(), openOptions{engine: true, reuse: !train})
		if err != nil {
			return err
		}
		defer env.Close()

		if train {
			if err := env.Engine.TrainWith(cmd.Context(), env.Config.Recommend.Dimensions, env.Config.Recommend.LeafSize); err != nil {
				return fmt.Errorf("train: %w", err)
			}
		}

		results, err := env.Engine.Recommend(cmd.Context(), args, nRecs)
		if err != nil {
			return fmt.Errorf("recommend: %w", err)
		}

		if wantJSON(cmd) {
			return writeJSON(cmd, results)
		}

		out := cmd.OutOrStdout()
		for _, res := range results {
			if !res.Found {
				fmt.Fprintf(out, "%s: not found\n", res.ID)
				continue
			}
			fmt.Fprintf(out, "%s:\n", res.ID)
			for i, n := range res.Neighbors {
				fmt.Fprintf(out, "  %2d. %s  %.4f\n", i+1, n.ID, n.Distance)
			}
		}
		return nil
	}
}
