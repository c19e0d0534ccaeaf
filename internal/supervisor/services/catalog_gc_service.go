// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ValueLogCollector reclaims storage. *catalog.LinkCache implements it.
type ValueLogCollector interface {
	RunGC() error
}

// CatalogCacheGCService runs BadgerDB value-log garbage collection for the
// catalog link cache on a fixed interval.
//
// Example usage:
//
//	cache, _ := catalog.OpenLinkCache(cfg.Catalog.CachePath, cfg.Catalog.CacheTTL)
//	svc := services.NewCatalogCacheGCService(cache, cfg.Catalog.CacheGCInterval, logger)
//	tree.AddDataService(svc)
type CatalogCacheGCService struct {
	cache    ValueLogCollector
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewCatalogCacheGCService creates the service. A non-positive interval
// defaults to ten minutes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCatalogCacheGCService(cache ValueLogCollector, interval time.Duration, logger zerolog.Logger) *CatalogCacheGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CatalogCacheGCService{
		cache:    cache,
		interval: interval,
		logger:   logger.With().Str("service", "catalog-cache-gc").Logger(),
		name:     "catalog-cache-gc",
	}
}

// Serve implements suture.Service. GC errors are logged and retried on the
// next tick rather than restarting the service.
func (s *CatalogCacheGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.cache.RunGC(); err != nil {
				s.logger.Warn().Err(err).Msg("link cache GC failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("link cache GC complete")
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *CatalogCacheGCService) String() string {
	return s.name
}
