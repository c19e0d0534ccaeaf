// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/tracksim/internal/config"
	"github.com/tomtom215/tracksim/internal/database"
	"github.com/tomtom215/tracksim/internal/etl"
	"github.com/tomtom215/tracksim/internal/logging"
	"github.com/tomtom215/tracksim/internal/recommend"
)

// DatasetRunner ingests the tracks dataset. *etl.Runner implements it.
type DatasetRunner interface {
	Run(ctx context.Context, source string, force bool) (*etl.Stats, error)
}

// ModelEngine is the engine surface the commands use. *recommend.Engine
// implements it.
type ModelEngine interface {
	TrainWith(ctx context.Context, kDims, leafSize int) error
	Save(ctx context.Context) error
	Prune(ctx context.Context) (int, error)
	Recommend(ctx context.Context, ids []string, nRecs int) ([]recommend.Result, error)
	Status() recommend.Status
}

// openOptions selects what a command needs opened.
type openOptions struct {
	// engine builds the recommendation engine.
	engine bool

	// reuse loads the persisted model into the engine.
	reuse bool
}

// environment is everything a command may touch. Engine is nil unless
// requested.
type environment struct {
	Config  *config.Config
	Dataset DatasetRunner
	Engine  ModelEngine

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// opener builds an environment. Tests substitute a fake.
type opener func(ctx context.Context, opts openOptions) (*environment, error)

// openEnvironment loads configuration and opens the database, and the engine
// when asked for.
func openEnvironment(ctx context.Context, opts openOptions) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: "console",
		Caller: cfg.Logging.Caller,
	})

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	env := &environment{
		Config:  cfg,
		Dataset: etl.NewRunner(db, nil),
	}
	env.closers = append(env.closers, func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	})

	if !opts.engine {
		return env, nil
	}

	blobs, err := recommend.OpenBlobStore(ctx, &cfg.Recommend.Blob)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("open model store: %w", err)
	}
	env.closers = append(env.closers, blobs.Close)

	logger := logging.WithComponent("recommend")
	engine, err := recommend.NewEngine(
		recommend.EngineConfig(&cfg.Recommend),
		db,
		recommend.NewModelStore(blobs, db, cfg.Recommend.ModelName),
		logger,
	)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}
	if err := engine.Initialize(ctx, opts.reuse); err != nil {
		env.Close()
		return nil, err
	}
	env.Engine = engine

	return env, nil
}
