// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package recommend

import (
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/tracksim/internal/kdtree"
	"github.com/tomtom215/tracksim/internal/reduce"
)

// DefaultFeatureColumns are the numeric audio attributes used for embeddings.
// Identifier-like and categorical columns (idx, album_id, key, time_signature,
// explicit) are deliberately absent.
var DefaultFeatureColumns = []string{
	"popularity",
	"duration_ms",
	"danceability",
	"energy",
	"loudness",
	"mode",
	"speechiness",
	"acousticness",
	"instrumentalness",
	"liveness",
	"valence",
	"tempo",
}

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Dimensions is the number of principal components retained.
	// Default: 6.
	Dimensions int `json:"dimensions"`

	// LeafSize bounds the number of points per k-d tree leaf.
	// Default: 7.
	LeafSize int `json:"leaf_size"`

	// ReuseModel loads the persisted model at startup instead of requiring a
	// train call. A missing model is then fatal.
	ReuseModel bool `json:"reuse_model"`

	// ModelName is the blob name under which models are versioned.
	// Default: "kdtree".
	ModelName string `json:"model_name"`

	// KeepVersions is how many persisted versions survive a prune.
	// Default: 3.
	KeepVersions int `json:"keep_versions"`

	// MaxQueryIDs caps the number of ids in one recommend call.
	// Default: 50.
	MaxQueryIDs int `json:"max_query_ids"`

	// MaxRecommendations caps n_recs.
	// Default: 100.
	MaxRecommendations int `json:"max_recommendations"`

	// FeatureColumns are read from the feature table, in order.
	FeatureColumns []string `json:"feature_columns"`

	// TrainTimeout bounds a single training run.
	// Default: 30m.
	TrainTimeout time.Duration `json:"train_timeout"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() *Config {
	return &Config{
		Dimensions:         reduce.DefaultDimensions,
		LeafSize:           kdtree.DefaultLeafSize,
		ReuseModel:         false,
		ModelName:          "kdtree",
		KeepVersions:       3,
		MaxQueryIDs:        50,
		MaxRecommendations: 100,
		FeatureColumns:     slices.Clone(DefaultFeatureColumns),
		TrainTimeout:       30 * time.Minute,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.FeatureColumns) == 0 {
		return fmt.Errorf("feature_columns must not be empty")
	}
	if err := reduce.ValidateDimensions(c.Dimensions, len(c.FeatureColumns)); err != nil {
		return fmt.Errorf("dimensions: %w", err)
	}
	if c.LeafSize < 1 {
		return fmt.Errorf("leaf_size must be positive, got %d", c.LeafSize)
	}
	if c.ModelName == "" {
		return fmt.Errorf("model_name must not be empty")
	}
	if c.KeepVersions < 1 {
		return fmt.Errorf("keep_versions must be positive, got %d", c.KeepVersions)
	}
	if c.MaxQueryIDs < 1 {
		return fmt.Errorf("max_query_ids must be positive, got %d", c.MaxQueryIDs)
	}
	if c.MaxRecommendations < 1 {
		return fmt.Errorf("max_recommendations must be positive, got %d", c.MaxRecommendations)
	}
	if c.TrainTimeout <= 0 {
		return fmt.Errorf("train_timeout must be positive, got %v", c.TrainTimeout)
	}

	seen := make(map[string]struct{}, len(c.FeatureColumns))
	for _, col := range c.FeatureColumns {
		if _, dup := seen[col]; dup {
			return fmt.Errorf("feature_columns contains %q twice", col)
		}
		seen[col] = struct{}{}
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.FeatureColumns = slices.Clone(c.FeatureColumns)
	return &clone
}
