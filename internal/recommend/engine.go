// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package recommend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tracksim/internal/features"
	"github.com/tomtom215/tracksim/internal/kdtree"
	"github.com/tomtom215/tracksim/internal/metrics"
	"github.com/tomtom215/tracksim/internal/recommend/storage"
	"github.com/tomtom215/tracksim/internal/reduce"
)

// FeatureSource supplies the numeric feature table. It is typically
// implemented by the database layer.
type FeatureSource interface {
	ReadFeatureTable(ctx context.Context, columns []string) (*features.Table, error)
}

// ArtifactStore persists and restores artifacts. *ModelStore implements it.
type ArtifactStore interface {
	Save(ctx context.Context, a *Artifact) (*storage.ModelMetadata, error)
	Load(ctx context.Context) (*Artifact, *storage.ModelMetadata, error)
	Prune(ctx context.Context, keep int) (int, error)
}

// Engine owns one Artifact at a time and answers similarity queries against it.
// It is safe for concurrent use: queries read the current artifact through an
// atomic pointer and never block on training.
type Engine struct {
	config *Config
	logger zerolog.Logger

	source FeatureSource
	store  ArtifactStore

	current atomic.Pointer[Artifact]
	state   atomic.Int32
	version atomic.Int64

	// trainMu serializes training runs; TryLock rejects overlapping ones.
	trainMu    sync.Mutex
	isTraining atomic.Bool

	statusMu  sync.RWMutex
	lastError string

	listenersMu sync.RWMutex
	listeners   []func(Status)
}

// NewEngine creates a new recommendation engine in the Uninitialized state.
// source and store may be nil when the caller never trains or persists.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, source FeatureSource, store ArtifactStore, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Op: "configure engine", Err: err}
	}

	e := &Engine{
		config: cfg.Clone(),
		logger: logger.With().Str("component", "recommend").Logger(),
		source: source,
		store:  store,
	}
	e.setState(StateUninitialized)
	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	tracks := 0
	if a := e.current.Load(); a != nil {
		tracks = a.Len()
	}
	metrics.SetModelState(int(s), tracks)
}

// OnSwap registers fn to be called after a new artifact starts serving.
func (e *Engine) OnSwap(fn func(Status)) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

func (e *Engine) notifySwap() {
	e.listenersMu.RLock()
	listeners := slices.Clone(e.listeners)
	e.listenersMu.RUnlock()

	status := e.Status()
	for _, fn := range listeners {
		fn(status)
	}
}

// Initialize prepares the engine for serving. With reuse set it restores the
// persisted artifact and becomes Ready; a missing or inconsistent artifact is
// a *ConfigError and training is never attempted in its place. Without reuse
// the engine stays Uninitialized until Train is called.
func (e *Engine) Initialize(ctx context.Context, reuse bool) error {
	if !reuse {
		e.logger.Info().Msg("model reuse disabled, waiting for training")
		e.setState(StateUninitialized)
		return nil
	}

	if e.store == nil {
		return &ConfigError{Op: "load model", Err: fmt.Errorf("%w: no model store configured", ErrArtifactNotFound)}
	}

	start := time.Now()
	a, meta, err := e.store.Load(ctx)
	if err != nil {
		return &ConfigError{Op: "load model", Err: err}
	}

	if !a.Normalizer.CompatibleWith(e.config.FeatureColumns) {
		return &ConfigError{Op: "load model", Err: &InconsistentArtifactError{
			Reason: fmt.Sprintf("model was fitted on %v, configured columns are %v",
				a.Normalizer.Columns, e.config.FeatureColumns),
		}}
	}

	e.setState(StateLoaded)
	e.current.Store(a)
	e.setVersion(meta.Version)
	e.setState(StateReady)

	e.logger.Info().
		Int("version", meta.Version).
		Int("tracks", a.Len()).
		Int("dimensions", a.Dimensions()).
		Dur("duration", time.Since(start)).
		Msg("model loaded from storage")

	e.notifySwap()
	return nil
}

// Train builds a new artifact with the configured dimensions and leaf size.
func (e *Engine) Train(ctx context.Context) error {
	return e.TrainWith(ctx, e.config.Dimensions, e.config.LeafSize)
}

// TrainWith reads the feature table, fits the normalizer and projection,
// builds the index and swaps the result in. Queries keep using the previous
// artifact until the swap. A second concurrent call returns
// ErrTrainingInProgress.
func (e *Engine) TrainWith(ctx context.Context, kDims, leafSize int) error {
	if !e.trainMu.TryLock() {
		metrics.RecordTrainingSkipped()
		return ErrTrainingInProgress
	}
	defer e.trainMu.Unlock()

	if err := reduce.ValidateDimensions(kDims, len(e.config.FeatureColumns)); err != nil {
		return &ConfigError{Op: "train", Err: err}
	}
	if leafSize < 1 {
		return &ConfigError{Op: "train", Err: fmt.Errorf("leaf size must be positive, got %d", leafSize)}
	}
	if e.source == nil {
		return &ConfigError{Op: "train", Err: errors.New("no feature source configured")}
	}

	e.isTraining.Store(true)
	defer e.isTraining.Store(false)

	start := time.Now()
	e.logger.Info().
		Int("dimensions", kDims).
		Int("leaf_size", leafSize).
		Msg("starting model training")

	trainCtx, cancel := context.WithTimeout(ctx, e.config.TrainTimeout)
	defer cancel()

	a, err := e.build(trainCtx, kDims, leafSize)
	duration := time.Since(start)
	metrics.RecordTraining(duration, err)
	e.setLastError(err)
	if err != nil {
		e.logger.Error().Err(err).Dur("duration", duration).Msg("model training failed")
		return err
	}
	a.TrainingDuration = duration

	if e.State() != StateReady {
		e.setState(StateTrained)
	}
	e.current.Store(a)
	e.setVersion(0)
	e.setState(StateReady)

	e.logger.Info().
		Int("tracks", a.Len()).
		Int("dimensions", a.Dimensions()).
		Floats64("explained_variance", a.Projection.ExplainedVarianceRatio()).
		Dur("duration", duration).
		Msg("model training complete")

	e.notifySwap()
	return nil
}

func (e *Engine) build(ctx context.Context, kDims, leafSize int) (*Artifact, error) {
	table, err := e.source.ReadFeatureTable(ctx, e.config.FeatureColumns)
	if err != nil {
		return nil, fmt.Errorf("read feature table: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return BuildArtifact(table, kDims, leafSize)
}

// BuildArtifact runs the full fitting pipeline over a feature table:
// standardize, project onto kDims principal components, index.
func BuildArtifact(table *features.Table, kDims, leafSize int) (*Artifact, error) {
	params, err := features.Fit(table)
	if err != nil {
		return nil, fmt.Errorf("fit normalizer: %w", err)
	}

	standardized, err := features.TransformAll(params, table.Rows)
	if err != nil {
		return nil, fmt.Errorf("standardize features: %w", err)
	}

	projection, err := reduce.Fit(standardized, kDims)
	if err != nil {
		return nil, fmt.Errorf("fit projection: %w", err)
	}

	embeddings, err := reduce.TransformAll(projection, standardized)
	if err != nil {
		return nil, fmt.Errorf("project features: %w", err)
	}

	index, err := kdtree.Build(table.IDs, embeddings, leafSize)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	return &Artifact{
		Normalizer: params,
		Projection: projection,
		Index:      index,
		TrainedAt:  time.Now().UTC(),
	}, nil
}

// Save persists the current artifact. It requires state Trained or Ready and
// never changes state.
func (e *Engine) Save(ctx context.Context) error {
	state := e.State()
	a := e.current.Load()
	if (state != StateTrained && state != StateReady) || a == nil {
		return fmt.Errorf("%w (state %s)", ErrNoArtifact, state)
	}
	if e.store == nil {
		return errors.New("no model store configured")
	}

	meta, err := e.store.Save(ctx, a)
	if err != nil {
		return err
	}

	// A retrain may have swapped in a newer artifact while saving.
	if e.current.Load() == a {
		e.setVersion(meta.Version)
	}

	e.logger.Info().
		Int("version", meta.Version).
		Int64("size_bytes", meta.SizeBytes).
		Msg("model saved")
	return nil
}

// Prune removes persisted versions beyond the configured retention.
func (e *Engine) Prune(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, nil
	}
	return e.store.Prune(ctx, e.config.KeepVersions)
}

// Recommend returns, for every id, its nRecs nearest neighbors ordered by
// ascending distance. The queried track itself is never among them.
//
// An id missing from the index yields a Result with Found=false rather than
// failing the batch, so results correspond positionally to ids.
func (e *Engine) Recommend(ctx context.Context, ids []string, nRecs int) ([]Result, error) {
	start := time.Now()

	a := e.current.Load()
	if state := e.State(); state != StateReady || a == nil {
		metrics.RecordRecommendation("not_ready", time.Since(start), 0)
		return nil, &ModelNotReadyError{State: state}
	}

	if err := e.validateQuery(ids, nRecs); err != nil {
		metrics.RecordRecommendation("invalid", time.Since(start), 0)
		return nil, err
	}

	if nRecs >= a.Len() {
		metrics.RecordRecommendation("insufficient", time.Since(start), 0)
		return nil, fmt.Errorf("%w: n_recs=%d, indexed tracks=%d", ErrInsufficientNeighbors, nRecs, a.Len())
	}

	// The cap applies only once the index could satisfy the request.
	if nRecs > e.config.MaxRecommendations {
		metrics.RecordRecommendation("invalid", time.Since(start), 0)
		return nil, &InvalidArgumentError{Field: "n_recs", Reason: fmt.Sprintf("must be at most %d, got %d", e.config.MaxRecommendations, nRecs)}
	}

	results := make([]Result, len(ids))
	unknown := 0
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			metrics.RecordRecommendation("error", time.Since(start), unknown)
			return nil, err
		}

		results[i] = Result{ID: id, Neighbors: []Neighbor{}}
		if !a.Index.Contains(id) {
			unknown++
			continue
		}

		found, err := a.Index.NeighborsOf(id, nRecs)
		if errors.Is(err, kdtree.ErrInsufficientNeighbors) {
			metrics.RecordRecommendation("insufficient", time.Since(start), unknown)
			return nil, fmt.Errorf("%w: n_recs=%d, indexed tracks=%d", ErrInsufficientNeighbors, nRecs, a.Len())
		}
		if err != nil {
			metrics.RecordRecommendation("error", time.Since(start), unknown)
			return nil, fmt.Errorf("query neighbors of %q: %w", id, err)
		}

		results[i].Found = true
		results[i].Neighbors = make([]Neighbor, len(found))
		for j, n := range found {
			results[i].Neighbors[j] = Neighbor{ID: n.ID, Distance: n.Distance}
		}
	}

	metrics.RecordRecommendation("success", time.Since(start), unknown)
	return results, nil
}

func (e *Engine) validateQuery(ids []string, nRecs int) error {
	if len(ids) == 0 {
		return &InvalidArgumentError{Field: "ids", Reason: "must not be empty"}
	}
	if len(ids) > e.config.MaxQueryIDs {
		return &InvalidArgumentError{Field: "ids", Reason: fmt.Sprintf("at most %d ids per request, got %d", e.config.MaxQueryIDs, len(ids))}
	}
	for _, id := range ids {
		if id == "" {
			return &InvalidArgumentError{Field: "ids", Reason: "must not contain empty strings"}
		}
	}
	if nRecs < 1 {
		return &InvalidArgumentError{Field: "n_recs", Reason: fmt.Sprintf("must be at least 1, got %d", nRecs)}
	}
	return nil
}

// Embedding returns the embedding of an indexed track.
func (e *Engine) Embedding(id string) ([]float64, bool) {
	a := e.current.Load()
	if a == nil {
		return nil, false
	}
	return a.Index.Point(id)
}

func (e *Engine) setVersion(v int) {
	e.version.Store(int64(v))
	metrics.SetModelVersion(v)
}

func (e *Engine) setLastError(err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	if err != nil {
		e.lastError = err.Error()
	} else {
		e.lastError = ""
	}
}

// Status returns a snapshot of the engine and its current model.
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	lastError := e.lastError
	e.statusMu.RUnlock()

	s := Status{
		State:        e.State().String(),
		IsTraining:   e.isTraining.Load(),
		ModelVersion: int(e.version.Load()),
		LastError:    lastError,
	}

	if a := e.current.Load(); a != nil {
		s.TrackCount = a.Len()
		s.Dimensions = a.Dimensions()
		s.LeafSize = a.Index.LeafSize()
		s.FeatureColumns = slices.Clone(a.Normalizer.Columns)
		s.ExplainedVariance = a.Projection.ExplainedVarianceRatio()
		s.LastTrainedAt = a.TrainedAt
		s.LastTrainingDurationMS = a.TrainingDuration.Milliseconds()
	}

	return s
}
