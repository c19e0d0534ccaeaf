// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package supervisor provides process supervision for Tracksim using suture v4.

Long-running services live in a three-layer tree so that a failure in one
layer restarts only that layer:

	RootSupervisor ("tracksim")
	├── DataSupervisor ("data-layer")
	│   └── CatalogCacheGCService (when the catalog is enabled)
	├── ModelSupervisor ("model-layer")
	│   ├── RecommendService
	│   └── SwapWatchService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events (starts, failures, backoff) are written through sutureslog
to the slog adapter in internal/logging, so they share the zerolog output.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddModelService(services.NewRecommendService(engine, bus, svcCfg, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}

# Restart Policy

FailureThreshold, FailureDecay and FailureBackoff follow suture's defaults
(5 failures, 30s decay, 15s backoff). A service that returns nil is not
restarted; returning an error restarts it; returning ctx.Err() is a normal
shutdown.
*/
package supervisor
