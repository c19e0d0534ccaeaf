// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tracksim/internal/config"
	"github.com/tomtom215/tracksim/internal/database"
	"github.com/tomtom215/tracksim/internal/events"
	"github.com/tomtom215/tracksim/internal/recommend"
	"github.com/tomtom215/tracksim/internal/recommend/storage"
	"github.com/tomtom215/tracksim/internal/supervisor"
	"github.com/tomtom215/tracksim/internal/supervisor/services"
)

// RecommendComponents holds all recommendation-related components.
type RecommendComponents struct {
	Engine  *recommend.Engine
	Blobs   *storage.Store
	Service *services.RecommendService
}

// Close releases the blob store.
func (c *RecommendComponents) Close() {
	if c != nil && c.Blobs != nil {
		c.Blobs.Close()
	}
}

// initRecommend builds the engine, loads or schedules its first model and
// registers the model-layer services.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	bus *events.Bus,
	tree *supervisor.SupervisorTree,
	logger zerolog.Logger,
) (*RecommendComponents, error) {
	logger.Info().
		Int("dimensions", cfg.Recommend.Dimensions).
		Int("leaf_size", cfg.Recommend.LeafSize).
		Bool("reuse_model", cfg.Recommend.ReuseModel).
		Str("blob_backend", cfg.Recommend.Blob.Backend).
		Msg("initializing recommendation engine")

	blobs, err := recommend.OpenBlobStore(ctx, &cfg.Recommend.Blob)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}

	modelStore := recommend.NewModelStore(blobs, db, cfg.Recommend.ModelName)
	engine, err := recommend.NewEngine(recommend.EngineConfig(&cfg.Recommend), db, modelStore, logger)
	if err != nil {
		blobs.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	if err := engine.Initialize(ctx, cfg.Recommend.ReuseModel); err != nil {
		blobs.Close()
		return nil, fmt.Errorf("initialize engine: %w", err)
	}

	engine.OnSwap(func(status recommend.Status) {
		if err := bus.PublishModelSwapped(context.Background(), &status); err != nil {
			logger.Warn().Err(err).Msg("failed to publish model swap")
		}
	})

	service := services.NewRecommendService(engine, bus, services.RecommendServiceConfig{
		TrainOnStartup: cfg.Recommend.TrainOnStartup,
		TrainInterval:  cfg.Recommend.TrainInterval,
		Dimensions:     cfg.Recommend.Dimensions,
		LeafSize:       cfg.Recommend.LeafSize,
		Persist:        true,
	}, logger)
	tree.AddModelService(service)
	tree.AddModelService(services.NewSwapWatchService(bus, logger))

	logger.Info().
		Str("state", engine.State().String()).
		Dur("train_interval", cfg.Recommend.TrainInterval).
		Bool("train_on_startup", cfg.Recommend.TrainOnStartup).
		Msg("recommendation services added to supervisor tree")

	return &RecommendComponents{
		Engine:  engine,
		Blobs:   blobs,
		Service: service,
	}, nil
}
