// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package services provides suture.Service wrappers for Tracksim components.

Each wrapper implements suture's context-aware Serve and fmt.Stringer:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown bounded by a timeout

Recommendation Service (RecommendService):
  - Trains on startup when no model is serving
  - Retrains on a ticker and on retrain requests from the event bus
  - Saves and prunes the model after each successful run

Catalog Cache GC (CatalogCacheGCService):
  - Runs BadgerDB value-log GC for the catalog link cache

Swap Watch (SwapWatchService):
  - Logs every model.swapped notification

# Usage Example

	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())

	tree.AddAPIService(services.NewHTTPServerService(server, 15*time.Second))
	tree.AddModelService(services.NewRecommendService(engine, bus, svcCfg, logger))
	tree.AddDataService(services.NewCatalogCacheGCService(linkCache, 10*time.Minute, logger))

	err := tree.Serve(ctx)

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

Training failures are logged and do not crash RecommendService; the
previous model keeps serving.
*/
package services
