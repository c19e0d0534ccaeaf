// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package catalog resolves playable Spotify links for recommended tracks.

The Client authenticates with the client-credentials grant and caches the
bearer token until shortly before it expires. Requests pass through a token
bucket limiter (golang.org/x/time/rate) and a circuit breaker
(github.com/sony/gobreaker/v2). A 401 triggers one reauthorization, a 429
waits for Retry-After, and server errors back off exponentially.

Links for many ids are fetched in batches of MaxIDsPerRequest, several batches
in parallel. Results, including ids the catalog does not know, are kept in a
BadgerDB LinkCache with a TTL so repeated recommendations do not hit the API.

Usage:

	cache, _ := catalog.OpenLinkCache(cfg.Catalog.CachePath, cfg.Catalog.CacheTTL)
	client, err := catalog.NewClient(&cfg.Catalog, cache, nil)
	if errors.Is(err, catalog.ErrDisabled) {
	    // recommendations are served without links
	}
	links, err := client.Links(ctx, ids)
*/
package catalog
