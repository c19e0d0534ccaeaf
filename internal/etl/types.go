// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package etl

import (
	"time"
)

// Record is one cleaned row of the source CSV.
type Record struct {
	Idx              int
	TrackID          string
	Artists          string
	AlbumName        string
	TrackName        string
	Popularity       float64
	DurationMS       float64
	Explicit         bool
	Danceability     float64
	Energy           float64
	Key              int
	Loudness         float64
	Mode             float64
	Speechiness      float64
	Acousticness     float64
	Instrumentalness float64
	Liveness         float64
	Valence          float64
	Tempo            float64
	TimeSignature    int
	TrackGenre       string
}

// Stats holds statistics about an ingestion run.
type Stats struct {
	// Source is the path or URL the dataset was read from.
	Source string

	// SourceRows is the number of data rows in the CSV.
	SourceRows int

	// DroppedIncomplete counts rows with at least one empty field.
	DroppedIncomplete int

	// DroppedDuplicates counts rows whose track_id was already seen.
	DroppedDuplicates int

	// Rows holds the written row count per table.
	Rows map[string]int

	// Skipped is set when the catalog was already populated and the run did nothing.
	Skipped bool

	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the duration of the run.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}
