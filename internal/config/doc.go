// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package config provides centralized configuration management for Tracksim.

Configuration is layered with Koanf v2:
  - Built-in defaults (defaultConfig)
  - An optional YAML file (CONFIG_PATH, then config.yaml / config.yml in the
    working directory, then /etc/tracksim/)
  - Environment variables, which always win

Only environment variables listed in envMappings are read. Unmapped variables
are ignored so the process environment cannot leak into the configuration.
Slice settings such as CORS_ORIGINS and RECOMMEND_FEATURE_COLUMNS accept
comma-separated values.

# Configuration Structure

  - DatabaseConfig: DuckDB file, memory limit and threads
  - ServerConfig: HTTP listen address, timeouts and environment name
  - SecurityConfig: rate limiting, CORS and the admin token
  - LoggingConfig: zerolog level, format and caller annotation
  - RecommendConfig: PCA dimensions, k-d tree leaf size, model reuse and
    retraining, plus BlobConfig for where model artifacts live
  - CatalogConfig: Spotify Web API credentials, rate limits and link cache
  - ETLConfig: dataset source and startup ingestion

# Commonly Used Variables

	DUCKDB_PATH=/data/tracksim.duckdb
	HTTP_PORT=5000
	REUSE_MODEL=true
	RECOMMEND_DIMENSIONS=6
	RECOMMEND_LEAF_SIZE=7
	MODEL_BLOB_BACKEND=minio
	MINIO_ENDPOINT=minio:9000
	MINIO_BUCKET=tracksim
	SPOTIFY_ID=...
	SPOTIFY_SECRET=...

# Validation

Load returns an error naming the offending environment variable when a value
is out of range, e.g. RECOMMEND_DIMENSIONS larger than the number of feature
columns or a MinIO endpoint that carries a URL scheme.
*/
package config
