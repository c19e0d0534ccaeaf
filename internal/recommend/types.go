// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package recommend

import (
	"time"

	"github.com/tomtom215/tracksim/internal/features"
	"github.com/tomtom215/tracksim/internal/kdtree"
	"github.com/tomtom215/tracksim/internal/reduce"
)

// State is the lifecycle state of an Engine.
type State int32

const (
	// StateUninitialized means no model is available.
	StateUninitialized State = iota

	// StateTrained means a model was built in this process.
	StateTrained

	// StateLoaded means a model was restored from storage.
	StateLoaded

	// StateReady means the engine serves queries.
	StateReady
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateTrained:
		return "trained"
	case StateLoaded:
		return "loaded"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Neighbor is one recommended track.
type Neighbor struct {
	// ID is the track identifier.
	ID string `json:"track_id"`

	// Distance is the Euclidean distance between embeddings.
	Distance float64 `json:"distance"`
}

// Result holds the neighbors of one queried track.
type Result struct {
	// ID is the queried track identifier.
	ID string `json:"track_id"`

	// Found is false when the id is not in the index. Neighbors is empty then.
	Found bool `json:"found"`

	// Neighbors are ordered by ascending distance.
	Neighbors []Neighbor `json:"neighbors"`
}

// Artifact is a fitted model: standardization, projection and index.
// It is immutable once built.
type Artifact struct {
	Normalizer *features.Params
	Projection *reduce.Projection
	Index      *kdtree.Tree

	TrainedAt        time.Time
	TrainingDuration time.Duration
}

// Len returns the number of indexed tracks.
func (a *Artifact) Len() int {
	return a.Index.Len()
}

// Dimensions returns the embedding length.
func (a *Artifact) Dimensions() int {
	return a.Index.Dim()
}

// Status describes the engine and its current model.
type Status struct {
	// State is the lifecycle state.
	State string `json:"state"`

	// IsTraining indicates whether training is currently in progress.
	IsTraining bool `json:"is_training"`

	// TrackCount is the number of indexed tracks.
	TrackCount int `json:"track_count"`

	// Dimensions is the embedding length.
	Dimensions int `json:"dimensions"`

	// LeafSize is the leaf capacity of the spatial index.
	LeafSize int `json:"leaf_size"`

	// FeatureColumns lists the attributes the model was fitted on.
	FeatureColumns []string `json:"feature_columns,omitempty"`

	// ExplainedVariance is the variance ratio captured by each component.
	ExplainedVariance []float64 `json:"explained_variance,omitempty"`

	// ModelVersion is the persisted version, or 0 if never saved or loaded.
	ModelVersion int `json:"model_version"`

	// LastTrainedAt is when the current model was trained.
	LastTrainedAt time.Time `json:"last_trained_at,omitempty"`

	// LastTrainingDurationMS is how long the last training took.
	LastTrainingDurationMS int64 `json:"last_training_duration_ms"`

	// LastError contains the last training error, if any.
	LastError string `json:"last_error,omitempty"`
}
