// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tracksim/internal/events"
	"github.com/tomtom215/tracksim/internal/recommend"
)

// RecommendEngine is the part of *recommend.Engine the service drives.
type RecommendEngine interface {
	State() recommend.State
	TrainWith(ctx context.Context, kDims, leafSize int) error
	Save(ctx context.Context) error
	Prune(ctx context.Context) (int, error)
}

// RetrainSource delivers retrain requests. *events.Bus implements it.
type RetrainSource interface {
	SubscribeRetrain(ctx context.Context) (<-chan events.RetrainRequest, error)
}

// RecommendServiceConfig holds configuration for the recommendation service.
type RecommendServiceConfig struct {
	// TrainOnStartup trains when the service starts and no model is serving.
	TrainOnStartup bool

	// TrainInterval is how often to retrain. Zero retrains only on request.
	TrainInterval time.Duration

	// Dimensions and LeafSize are used unless a request overrides them.
	Dimensions int
	LeafSize   int

	// Persist saves and prunes the model after each successful training.
	Persist bool
}

// RecommendService owns the training lifecycle: startup training, periodic
// retraining and retraining on bus requests. Each successful run is
// followed by save and prune when Persist is set.
type RecommendService struct {
	engine  RecommendEngine
	retrain RetrainSource
	config  RecommendServiceConfig
	logger  zerolog.Logger
	name    string
}

// NewRecommendService creates a new recommendation service. retrain may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecommendService(engine RecommendEngine, retrain RetrainSource, cfg RecommendServiceConfig, logger zerolog.Logger) *RecommendService {
	return &RecommendService{
		engine:  engine,
		retrain: retrain,
		config:  cfg,
		logger:  logger.With().Str("service", "recommend").Logger(),
		name:    "recommend-service",
	}
}

// Serve implements the suture.Service interface.
func (s *RecommendService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("train_interval", s.config.TrainInterval).
		Msg("recommendation service starting")

	var requests <-chan events.RetrainRequest
	if s.retrain != nil {
		ch, err := s.retrain.SubscribeRetrain(ctx)
		if err != nil {
			// Returning lets suture restart the service with backoff.
			return err
		}
		requests = ch
	}

	if s.config.TrainOnStartup && s.engine.State() != recommend.StateReady {
		s.logger.Info().Msg("training model on startup")
		s.run(ctx, s.config.Dimensions, s.config.LeafSize, "startup")
	}

	var tick <-chan time.Time
	if s.config.TrainInterval > 0 {
		ticker := time.NewTicker(s.config.TrainInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("recommendation service shutting down")
			return ctx.Err()

		case <-tick:
			s.logger.Debug().Msg("scheduled training triggered")
			s.run(ctx, s.config.Dimensions, s.config.LeafSize, "schedule")

		case req, ok := <-requests:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return events.ErrBusClosed
			}
			dims, leaf := s.config.Dimensions, s.config.LeafSize
			if req.Dimensions > 0 {
				dims = req.Dimensions
			}
			if req.LeafSize > 0 {
				leaf = req.LeafSize
			}
			s.logger.Info().
				Str("event_id", req.EventID).
				Str("reason", req.Reason).
				Int("dimensions", dims).
				Int("leaf_size", leaf).
				Msg("retrain requested")
			s.run(ctx, dims, leaf, "request")
		}
	}
}

// run trains once and persists the result. Failures are logged; the
// previous model keeps serving.
func (s *RecommendService) run(ctx context.Context, dims, leaf int, trigger string) {
	start := time.Now()
	err := s.engine.TrainWith(ctx, dims, leaf)
	switch {
	case errors.Is(err, recommend.ErrTrainingInProgress):
		s.logger.Warn().Str("trigger", trigger).Msg("training already running, request skipped")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("trigger", trigger).Msg("model training failed")
		return
	}

	s.logger.Info().
		Str("trigger", trigger).
		Dur("duration", time.Since(start)).
		Msg("model training complete")

	if !s.config.Persist {
		return
	}
	if err := s.engine.Save(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to save model")
		return
	}
	removed, err := s.engine.Prune(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to prune old model versions")
		return
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("pruned old model versions")
	}
}

// String returns the service name for logging.
func (s *RecommendService) String() string {
	return s.name
}
