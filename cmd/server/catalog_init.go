// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tracksim/internal/api"
	"github.com/tomtom215/tracksim/internal/catalog"
	"github.com/tomtom215/tracksim/internal/config"
	"github.com/tomtom215/tracksim/internal/supervisor"
	"github.com/tomtom215/tracksim/internal/supervisor/services"
)

// CatalogComponents holds the link resolver and its cache.
type CatalogComponents struct {
	Client *catalog.Client
	Cache  *catalog.LinkCache
}

// Links returns the resolver for the API handler, or nil when the catalog is
// disabled.
func (c *CatalogComponents) Links() api.LinkResolver {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client
}

// Close closes the link cache.
func (c *CatalogComponents) Close() error {
	if c == nil || c.Cache == nil {
		return nil
	}
	return c.Cache.Close()
}

// initCatalog builds the catalog client when credentials are configured.
// Returns nil when the catalog is disabled; recommendations are then served
// without links.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initCatalog(cfg *config.Config, tree *supervisor.SupervisorTree, logger zerolog.Logger) (*CatalogComponents, error) {
	if !cfg.Catalog.Enabled() {
		logger.Info().Msg("Catalog links disabled (SPOTIFY_ID/SPOTIFY_SECRET not set)")
		return nil, nil
	}

	cache, err := catalog.OpenLinkCache(cfg.Catalog.CachePath, cfg.Catalog.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("open catalog cache: %w", err)
	}

	client, err := catalog.NewClient(&cfg.Catalog, cache, nil)
	if errors.Is(err, catalog.ErrDisabled) {
		_ = cache.Close()
		return nil, nil
	}
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("create catalog client: %w", err)
	}

	tree.AddDataService(services.NewCatalogCacheGCService(cache, cfg.Catalog.CacheGCInterval, logger))
	logger.Info().
		Str("api_url", cfg.Catalog.APIURL).
		Str("cache_path", cfg.Catalog.CachePath).
		Dur("cache_ttl", cfg.Catalog.CacheTTL).
		Msg("Catalog client initialized")

	return &CatalogComponents{Client: client, Cache: cache}, nil
}
