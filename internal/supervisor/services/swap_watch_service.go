// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tracksim/internal/events"
)

// SwapSource delivers model swap notifications. *events.Bus implements it.
type SwapSource interface {
	SubscribeModelSwapped(ctx context.Context) (<-chan events.ModelSwapped, error)
}

// SwapWatchService records every model swap announced on the bus in the
// application log, giving one audit line per serving model.
type SwapWatchService struct {
	source SwapSource
	logger zerolog.Logger
	name   string

	// onSwap is called for every notification. Tests use it.
	onSwap func(events.ModelSwapped)
}

// NewSwapWatchService creates the service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSwapWatchService(source SwapSource, logger zerolog.Logger) *SwapWatchService {
	return &SwapWatchService{
		source: source,
		logger: logger.With().Str("service", "swap-watch").Logger(),
		name:   "swap-watch",
	}
}

// Serve implements suture.Service.
func (s *SwapWatchService) Serve(ctx context.Context) error {
	ch, err := s.source.SubscribeModelSwapped(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return events.ErrBusClosed
			}
			s.logger.Info().
				Str("event_id", msg.EventID).
				Int("model_version", msg.ModelVersion).
				Int("tracks", msg.TrackCount).
				Int("dimensions", msg.Dimensions).
				Int("leaf_size", msg.LeafSize).
				Time("trained_at", msg.TrainedAt).
				Msg("serving model swapped")
			if s.onSwap != nil {
				s.onSwap(msg)
			}
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *SwapWatchService) String() string {
	return s.name
}
