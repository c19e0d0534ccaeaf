// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tracksim/config.yaml",
	"/etc/tracksim/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultDatasetURL is the public spotify-tracks dataset.
const DefaultDatasetURL = "https://huggingface.co/datasets/maharshipandya/spotify-tracks-dataset/resolve/main/dataset.csv"

// defaultFeatureColumns mirrors recommend.DefaultFeatureColumns. The config
// package stays free of engine imports, so the list is repeated here.
var defaultFeatureColumns = []string{
	"popularity",
	"duration_ms",
	"danceability",
	"energy",
	"loudness",
	"mode",
	"speechiness",
	"acousticness",
	"instrumentalness",
	"liveness",
	"valence",
	"tempo",
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/tracksim.duckdb",
			MaxMemory:              "2GB",
			Threads:                0,    // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true, // DuckDB default
		},
		Server: ServerConfig{
			Port:            5000,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: RecommendConfig{
			Dimensions:         6,
			LeafSize:           7,
			ReuseModel:         false,
			ModelName:          "kdtree",
			KeepVersions:       3,
			MaxQueryIDs:        50,
			MaxRecommendations: 100,
			FeatureColumns:     append([]string(nil), defaultFeatureColumns...),
			TrainTimeout:       30 * time.Minute,
			TrainOnStartup:     true,
			TrainInterval:      0, // retrain only on request
			Blob: BlobConfig{
				Backend: "file",
				Path:    "/data/models",
				Prefix:  "models",
				UseSSL:  true,
			},
		},
		Catalog: CatalogConfig{
			AccountsURL:     "https://accounts.spotify.com",
			APIURL:          "https://api.spotify.com",
			Timeout:         10 * time.Second,
			MaxRetries:      3,
			RateLimit:       10,
			Burst:           5,
			CachePath:       "/data/catalog-cache",
			CacheTTL:        7 * 24 * time.Hour,
			CacheGCInterval: 10 * time.Minute,
		},
		ETL: ETLConfig{
			Source:    DefaultDatasetURL,
			OnStartup: true,
			Force:     false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"recommend.feature_columns",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// SPOTIFY_ID and SPOTIFY_SECRET keep the names used by existing deployments.
var envMappings = map[string]string{
	// Database mappings
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Server mappings
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Security mappings
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"trusted_proxies":     "security.trusted_proxies",
	"admin_token":         "security.admin_token",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Recommendation engine mappings
	"reuse_model":                   "recommend.reuse_model",
	"recommend_dimensions":          "recommend.dimensions",
	"recommend_leaf_size":           "recommend.leaf_size",
	"recommend_model_name":          "recommend.model_name",
	"recommend_keep_versions":       "recommend.keep_versions",
	"recommend_max_query_ids":       "recommend.max_query_ids",
	"recommend_max_recommendations": "recommend.max_recommendations",
	"recommend_feature_columns":     "recommend.feature_columns",
	"recommend_train_timeout":       "recommend.train_timeout",
	"recommend_train_on_startup":    "recommend.train_on_startup",
	"recommend_train_interval":      "recommend.train_interval",

	// Model blob storage
	"model_blob_backend": "recommend.blob.backend",
	"model_path":         "recommend.blob.path",
	"minio_endpoint":     "recommend.blob.endpoint",
	"minio_access_key":   "recommend.blob.access_key",
	"minio_secret_key":   "recommend.blob.secret_key",
	"minio_bucket":       "recommend.blob.bucket",
	"minio_prefix":       "recommend.blob.prefix",
	"minio_region":       "recommend.blob.region",
	"minio_use_ssl":      "recommend.blob.use_ssl",

	// Catalog (Spotify Web API) mappings
	"spotify_id":                "catalog.client_id",
	"spotify_secret":            "catalog.client_secret",
	"spotify_accounts_url":      "catalog.accounts_url",
	"spotify_api_url":           "catalog.api_url",
	"catalog_timeout":           "catalog.timeout",
	"catalog_max_retries":       "catalog.max_retries",
	"catalog_rate_limit":        "catalog.rate_limit",
	"catalog_burst":             "catalog.burst",
	"catalog_cache_path":        "catalog.cache_path",
	"catalog_cache_ttl":         "catalog.cache_ttl",
	"catalog_cache_gc_interval": "catalog.cache_gc_interval",

	// Dataset ingestion
	"etl_source":     "etl.source",
	"etl_on_startup": "etl.on_startup",
	"etl_force":      "etl.force",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - SPOTIFY_ID -> catalog.client_id
//   - REUSE_MODEL -> recommend.reuse_model
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
