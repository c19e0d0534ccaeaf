// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotReady is the sentinel wrapped by ModelNotReadyError.
	ErrModelNotReady = errors.New("model not ready")

	// ErrInvalidArgument is the sentinel wrapped by InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientNeighbors is returned when n_recs is not smaller than the
	// number of indexed tracks. Results are never silently truncated.
	ErrInsufficientNeighbors = errors.New("not enough indexed tracks for the requested number of recommendations")

	// ErrTrainingInProgress is returned when a second training run is started
	// while one is active.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrArtifactNotFound is returned when no persisted model exists.
	ErrArtifactNotFound = errors.New("model artifact not found")

	// ErrInconsistentArtifact is the sentinel wrapped by InconsistentArtifactError.
	ErrInconsistentArtifact = errors.New("inconsistent model artifact")

	// ErrNoArtifact is returned by Save before any model was trained or loaded.
	ErrNoArtifact = errors.New("no model to save")
)

// ModelNotReadyError reports a query against an engine that is not Ready.
type ModelNotReadyError struct {
	State State
}

func (e *ModelNotReadyError) Error() string {
	return fmt.Sprintf("model not ready (state %s)", e.State)
}

func (e *ModelNotReadyError) Unwrap() error { return ErrModelNotReady }

// InvalidArgumentError reports a rejected query argument.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// ConfigError is a fatal initialization error. It is never retried.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error during %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// InconsistentArtifactError reports a persisted model whose blob and embedding
// table disagree.
type InconsistentArtifactError struct {
	Reason string
}

func (e *InconsistentArtifactError) Error() string {
	return "inconsistent model artifact: " + e.Reason
}

func (e *InconsistentArtifactError) Unwrap() error { return ErrInconsistentArtifact }
