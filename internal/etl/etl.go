// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package etl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/tracksim/internal/logging"
	"github.com/tomtom215/tracksim/internal/metrics"
	"github.com/tomtom215/tracksim/internal/models"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("ingestion already in progress")

// ErrEmptyDataset is returned when cleaning leaves no rows.
var ErrEmptyDataset = errors.New("dataset has no usable rows")

// Loader is the storage side of ingestion. *database.DB implements it.
type Loader interface {
	CatalogEmpty(ctx context.Context) (bool, error)
	LoadDataset(ctx context.Context, ds *models.Dataset) error
}

// Runner ingests the track dataset into the catalog tables.
type Runner struct {
	loader Loader
	client *http.Client

	mu      sync.Mutex
	running bool
}

// NewRunner creates a runner. A nil client uses a client with a 10 minute timeout.
func NewRunner(loader Loader, client *http.Client) *Runner {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Runner{loader: loader, client: client}
}

// Run fetches, cleans, normalizes and loads the dataset from source. Unless
// force is set, a populated catalog is left untouched and the returned stats
// have Skipped set.
func (r *Runner) Run(ctx context.Context, source string, force bool) (stats *Stats, err error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	start := time.Now()

	if !force {
		empty, err := r.loader.CatalogEmpty(ctx)
		if err != nil {
			return nil, fmt.Errorf("check catalog: %w", err)
		}
		if !empty {
			logging.Info().Msg("Catalog already populated, skipping dataset ingestion")
			return &Stats{Source: source, Skipped: true, StartTime: start, EndTime: time.Now()}, nil
		}
	}

	defer func() {
		var rows map[string]int
		if stats != nil {
			rows = stats.Rows
		}
		metrics.RecordETLRun(time.Since(start), rows, err)
	}()

	logging.Info().Str("source", source).Bool("force", force).Msg("Starting dataset ingestion")

	body, err := Fetch(ctx, r.client, source)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	defer func() {
		if closeErr := body.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Error closing dataset source")
		}
	}()

	records, stats, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	stats.Source = source
	stats.StartTime = start
	if len(records) == 0 {
		return stats, ErrEmptyDataset
	}

	ds := Normalize(records)
	if err := r.loader.LoadDataset(ctx, ds); err != nil {
		return stats, fmt.Errorf("load dataset: %w", err)
	}
	stats.Rows = ds.Counts()
	stats.EndTime = time.Now()

	logging.Info().
		Int("source_rows", stats.SourceRows).
		Int("dropped_incomplete", stats.DroppedIncomplete).
		Int("dropped_duplicates", stats.DroppedDuplicates).
		Int("tracks", stats.Rows["tracks"]).
		Int("albums", stats.Rows["albums"]).
		Int("artists", stats.Rows["artists"]).
		Dur("duration", stats.Duration()).
		Msg("Dataset ingestion completed")

	return stats, nil
}
