// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

// Package recommend implements the track similarity engine.
//
// # Pipeline
//
// Training reads the numeric feature table and runs:
//
//	features.Fit       per-column mean and standard deviation
//	reduce.Fit         principal components of the standardized rows
//	kdtree.Build       spatial index over the projected embeddings
//
// The three fitted pieces form an Artifact. A query for a track looks up its
// stored embedding and asks the index for the nearest other tracks.
//
// # Lifecycle
//
// The engine moves through Uninitialized, Trained or Loaded, and Ready. Only
// Ready serves queries. Initialize with reuse restores the latest persisted
// artifact and fails with a *ConfigError if none exists; it never falls back
// to training. Train builds a new artifact off to the side and swaps it in
// with a single atomic pointer store, so in-flight queries see either the old
// or the new artifact in full.
//
// # Persistence
//
// ModelStore writes the artifact as a versioned, checksummed blob and writes
// the embeddings to the pr_comps table. Load verifies that both agree on every
// track id and vector before anything is served.
//
// # Usage
//
//	engine, err := recommend.NewEngine(cfg, db, modelStore, logger)
//	if err != nil {
//	    return err
//	}
//	if err := engine.Initialize(ctx, cfg.ReuseModel); err != nil {
//	    return err // fatal
//	}
//	if engine.State() != recommend.StateReady {
//	    if err := engine.Train(ctx); err != nil {
//	        return err
//	    }
//	    _ = engine.Save(ctx)
//	}
//
//	results, err := engine.Recommend(ctx, []string{"5SuOikwiRyPMVoIQDJUgSV"}, 10)
//
// # Thread Safety
//
// Recommend, Status and Embedding are lock-free. Training runs are serialized;
// an overlapping Train returns ErrTrainingInProgress.
package recommend
