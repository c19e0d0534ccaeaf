// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	db, err := database.New(&cfg.Database)
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Recommend RecommendConfig `koanf:"recommend"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	ETL       ETLConfig       `koanf:"etl"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // Number of DuckDB threads (0 = use NumCPU)
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // Whether to preserve insertion order (default true)
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development", "staging", "production"
}

// SecurityConfig holds request limiting and cross-origin settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`

	// AdminToken guards the admin endpoints. When empty they are only mounted
	// outside production.
	AdminToken string `koanf:"admin_token"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// RecommendConfig configures the similarity engine and its persistence.
//
// Environment Variables:
//   - REUSE_MODEL: load the persisted model at startup; a missing model is fatal
//   - RECOMMEND_DIMENSIONS: principal components kept (default: 6)
//   - RECOMMEND_LEAF_SIZE: k-d tree leaf capacity (default: 7)
//   - RECOMMEND_FEATURE_COLUMNS: comma-separated numeric attributes
//   - RECOMMEND_TRAIN_ON_STARTUP: train when no model is loaded (default: true)
//   - RECOMMEND_TRAIN_INTERVAL: periodic retrain, 0 disables (default: 0)
type RecommendConfig struct {
	Dimensions         int           `koanf:"dimensions"`
	LeafSize           int           `koanf:"leaf_size"`
	ReuseModel         bool          `koanf:"reuse_model"`
	ModelName          string        `koanf:"model_name"`
	KeepVersions       int           `koanf:"keep_versions"`
	MaxQueryIDs        int           `koanf:"max_query_ids"`
	MaxRecommendations int           `koanf:"max_recommendations"`
	FeatureColumns     []string      `koanf:"feature_columns"`
	TrainTimeout       time.Duration `koanf:"train_timeout"`
	TrainOnStartup     bool          `koanf:"train_on_startup"`
	TrainInterval      time.Duration `koanf:"train_interval"`

	Blob BlobConfig `koanf:"blob"`
}

// BlobConfig selects where model blobs are stored.
type BlobConfig struct {
	// Backend is "file" or "minio".
	Backend string `koanf:"backend"`

	// Path is the directory used by the file backend.
	Path string `koanf:"path"`

	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// CatalogConfig holds Spotify Web API settings used to enrich recommendations
// with playable links. The client is disabled when credentials are absent.
type CatalogConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	AccountsURL  string        `koanf:"accounts_url"`
	APIURL       string        `koanf:"api_url"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRetries   int           `koanf:"max_retries"`

	// RateLimit is the sustained request rate per second; Burst is the bucket size.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`

	CachePath       string        `koanf:"cache_path"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	CacheGCInterval time.Duration `koanf:"cache_gc_interval"`
}

// Enabled reports whether both client credentials are configured.
func (c *CatalogConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// ETLConfig controls dataset ingestion at startup.
type ETLConfig struct {
	// Source is a local CSV path or an http(s) URL.
	Source string `koanf:"source"`

	// OnStartup ingests the dataset when the catalog tables are empty.
	OnStartup bool `koanf:"on_startup"`

	// Force reloads the dataset even when the catalog is populated.
	Force bool `koanf:"force"`
}

// Load loads configuration from all sources. It is an alias for LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
