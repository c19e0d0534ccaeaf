// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package main is the entry point for the Tracksim server.

Tracksim recommends tracks that sound like the ones you give it. Audio
features from the catalog are standardized, projected with PCA and indexed in
a k-d tree; a recommend call returns the nearest neighbours of each query
track, enriched with playable links when catalog credentials are configured.

# Startup Order

 1. Configuration: .env (optional), then defaults, config.yaml and
    environment variables via Koanf v2
 2. Logging: zerolog, JSON or console
 3. Database: DuckDB catalog and feature tables
 4. Dataset: optional ETL of the tracks CSV when the catalog is empty
    (ETL_ON_STARTUP, ETL_FORCE, ETL_SOURCE)
 5. Engine: loads the persisted model (REUSE_MODEL=true) or waits for the
    first training run
 6. Catalog: Spotify client with a BadgerDB link cache (SPOTIFY_ID,
    SPOTIFY_SECRET)
 7. HTTP server: chi router under /api/v1 plus /metrics

# Supervisor Tree

Long-running work runs under suture:

	tracksim
	├── data-layer   catalog-cache-gc
	├── model-layer  recommend-service, swap-watch
	└── api-layer    http-server

recommend-service trains on startup, on RECOMMEND_TRAIN_INTERVAL and on
every retrain event published by POST /api/v1/admin/retrain. Each new model
is swapped in atomically, saved and old versions pruned.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up to
SHUTDOWN_TIMEOUT, then the bus, blob store, link cache and database close.

# Example Usage

	export DUCKDB_PATH=./data/tracksim.duckdb
	export MODEL_PATH=./data/models
	export ENVIRONMENT=development
	./tracksim

With MinIO model storage and catalog links:

	export MODEL_BLOB_BACKEND=minio
	export MINIO_ENDPOINT=minio:9000
	export MINIO_BUCKET=tracksim
	export MINIO_ACCESS_KEY=...
	export MINIO_SECRET_KEY=...
	export SPOTIFY_ID=...
	export SPOTIFY_SECRET=...
	export ADMIN_TOKEN=$(openssl rand -hex 32)
	./tracksim

See cmd/tracksimctl for one-shot ETL, training and queries.
*/
package main
