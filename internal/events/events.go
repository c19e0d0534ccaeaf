// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package events

import (
	"fmt"
	"strings"
	"time"
)

// Topics used on the bus.
const (
	TopicRetrain      = "recommend.retrain"
	TopicModelSwapped = "model.swapped"
)

// SchemaVersion is the current event schema version.
const SchemaVersion = 1

// MaxReasonLength bounds the free-text reason of a retrain request.
const MaxReasonLength = 256

// RetrainRequest asks the recommend service to rebuild the model.
type RetrainRequest struct {
	SchemaVersion int       `json:"schema_version,omitempty"`
	EventID       string    `json:"event_id"`
	Reason        string    `json:"reason"`
	RequestedAt   time.Time `json:"requested_at"`

	// Dimensions and LeafSize override the configured values when positive.
	Dimensions int `json:"dimensions,omitempty"`
	LeafSize   int `json:"leaf_size,omitempty"`
}

// Validate checks that required fields are present.
func (r *RetrainRequest) Validate() error {
	if r.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return fmt.Errorf("reason is required")
	}
	if len(r.Reason) > MaxReasonLength {
		return fmt.Errorf("reason exceeds %d characters", MaxReasonLength)
	}
	if r.Dimensions < 0 || r.LeafSize < 0 {
		return fmt.Errorf("dimensions and leaf_size must not be negative")
	}
	return nil
}

// ModelSwapped announces that a new model is serving.
type ModelSwapped struct {
	SchemaVersion int       `json:"schema_version,omitempty"`
	EventID       string    `json:"event_id"`
	ModelVersion  int       `json:"model_version"`
	TrackCount    int       `json:"track_count"`
	Dimensions    int       `json:"dimensions"`
	LeafSize      int       `json:"leaf_size"`
	TrainedAt     time.Time `json:"trained_at"`
	SwappedAt     time.Time `json:"swapped_at"`
}

// Validate checks that required fields are present.
func (m *ModelSwapped) Validate() error {
	if m.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if m.TrackCount <= 0 || m.Dimensions <= 0 {
		return fmt.Errorf("track_count and dimensions must be positive")
	}
	return nil
}
