// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// isolate runs the test in an empty directory with no CONFIG_PATH so that no
// stray config file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	return dir
}

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaultConfig().Validate() error = %v", err)
	}

	if cfg.Database.Path != "/data/tracksim.duckdb" {
		t.Errorf("Database.Path = %q, want /data/tracksim.duckdb", cfg.Database.Path)
	}
	if cfg.Database.MaxMemory != "2GB" {
		t.Errorf("Database.MaxMemory = %q, want 2GB", cfg.Database.MaxMemory)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Recommend.Dimensions != 6 {
		t.Errorf("Recommend.Dimensions = %d, want 6", cfg.Recommend.Dimensions)
	}
	if cfg.Recommend.LeafSize != 7 {
		t.Errorf("Recommend.LeafSize = %d, want 7", cfg.Recommend.LeafSize)
	}
	if cfg.Recommend.ReuseModel {
		t.Error("Recommend.ReuseModel should be false by default")
	}
	if cfg.Recommend.Blob.Backend != "file" {
		t.Errorf("Recommend.Blob.Backend = %q, want file", cfg.Recommend.Blob.Backend)
	}
	if len(cfg.Recommend.FeatureColumns) != 12 {
		t.Errorf("Recommend.FeatureColumns has %d entries, want 12", len(cfg.Recommend.FeatureColumns))
	}
	if cfg.Catalog.Enabled() {
		t.Error("Catalog should be disabled without credentials")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"DUCKDB_PATH", "database.path"},
		{"DUCKDB_THREADS", "database.threads"},
		{"HTTP_PORT", "server.port"},
		{"ENVIRONMENT", "server.environment"},
		{"RATE_LIMIT_REQUESTS", "security.rate_limit_reqs"},
		{"ADMIN_TOKEN", "security.admin_token"},
		{"LOG_LEVEL", "logging.level"},
		{"REUSE_MODEL", "recommend.reuse_model"},
		{"RECOMMEND_DIMENSIONS", "recommend.dimensions"},
		{"RECOMMEND_FEATURE_COLUMNS", "recommend.feature_columns"},
		{"MODEL_BLOB_BACKEND", "recommend.blob.backend"},
		{"MINIO_BUCKET", "recommend.blob.bucket"},
		{"SPOTIFY_ID", "catalog.client_id"},
		{"SPOTIFY_SECRET", "catalog.client_secret"},
		{"CATALOG_CACHE_TTL", "catalog.cache_ttl"},
		{"ETL_SOURCE", "etl.source"},

		// Unknown (should return empty)
		{"RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := envTransformFunc(tt.input); result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	dir := isolate(t)

	t.Run("no config file exists", func(t *testing.T) {
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("logging:\n  level: debug\n"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if result := findConfigFile(); result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH takes priority", func(t *testing.T) {
		custom := filepath.Join(dir, "custom.yaml")
		if err := os.WriteFile(custom, []byte("{}\n"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		t.Setenv(ConfigPathEnvVar, custom)
		if result := findConfigFile(); result != custom {
			t.Errorf("findConfigFile() = %q, want %q", result, custom)
		}
	})
}

// TestLoadWithKoanfEnvVars tests loading configuration from environment variables
func TestLoadWithKoanfEnvVars(t *testing.T) {
	isolate(t)

	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REUSE_MODEL", "true")
	t.Setenv("RECOMMEND_DIMENSIONS", "3")
	t.Setenv("RECOMMEND_FEATURE_COLUMNS", "energy, tempo ,valence,danceability")
	t.Setenv("RECOMMEND_TRAIN_INTERVAL", "6h")
	t.Setenv("SPOTIFY_ID", "client")
	t.Setenv("SPOTIFY_SECRET", "secret")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if !cfg.Recommend.ReuseModel {
		t.Error("Recommend.ReuseModel = false, want true")
	}
	if cfg.Recommend.Dimensions != 3 {
		t.Errorf("Recommend.Dimensions = %d, want 3", cfg.Recommend.Dimensions)
	}
	wantCols := []string{"energy", "tempo", "valence", "danceability"}
	if !reflect.DeepEqual(cfg.Recommend.FeatureColumns, wantCols) {
		t.Errorf("Recommend.FeatureColumns = %v, want %v", cfg.Recommend.FeatureColumns, wantCols)
	}
	if cfg.Recommend.TrainInterval != 6*time.Hour {
		t.Errorf("Recommend.TrainInterval = %v, want 6h", cfg.Recommend.TrainInterval)
	}
	if !cfg.Catalog.Enabled() {
		t.Error("Catalog should be enabled with both credentials")
	}

	// Defaults survive for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Catalog.APIURL != "https://api.spotify.com" {
		t.Errorf("Catalog.APIURL = %q (default expected)", cfg.Catalog.APIURL)
	}
}

// TestLoadWithKoanfConfigFile tests loading configuration from a YAML file
func TestLoadWithKoanfConfigFile(t *testing.T) {
	dir := isolate(t)

	content := `
database:
  path: /tmp/test.duckdb
server:
  port: 8080
recommend:
  leaf_size: 20
  feature_columns:
    - energy
    - tempo
  dimensions: 2
  blob:
    backend: minio
    endpoint: localhost:9000
    bucket: models
logging:
  level: warn
  format: console
`
	path := filepath.Join(dir, "tracksim.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.duckdb" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Recommend.LeafSize != 20 {
		t.Errorf("Recommend.LeafSize = %d, want 20", cfg.Recommend.LeafSize)
	}
	if !reflect.DeepEqual(cfg.Recommend.FeatureColumns, []string{"energy", "tempo"}) {
		t.Errorf("Recommend.FeatureColumns = %v", cfg.Recommend.FeatureColumns)
	}
	if cfg.Recommend.Blob.Backend != "minio" || cfg.Recommend.Blob.Bucket != "models" {
		t.Errorf("Recommend.Blob = %+v", cfg.Recommend.Blob)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
}

// TestLoadWithKoanfEnvOverridesFile tests that env vars override config file values
func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	dir := isolate(t)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\nlogging:\n  level: warn\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("HTTP_PORT", "7000")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000 (env wins)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn (from file)", cfg.Logging.Level)
	}
}

// TestLoadWithKoanfValidation tests that invalid configuration is rejected
func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{name: "invalid port", envVars: map[string]string{"HTTP_PORT": "70000"}},
		{name: "invalid log level", envVars: map[string]string{"LOG_LEVEL": "verbose"}},
		{name: "dimensions above column count", envVars: map[string]string{"RECOMMEND_DIMENSIONS": "13"}},
		{name: "zero leaf size", envVars: map[string]string{"RECOMMEND_LEAF_SIZE": "0"}},
		{name: "unknown blob backend", envVars: map[string]string{"MODEL_BLOB_BACKEND": "ftp"}},
		{name: "minio without bucket", envVars: map[string]string{"MODEL_BLOB_BACKEND": "minio", "MINIO_ENDPOINT": "localhost:9000"}},
		{name: "only one spotify credential", envVars: map[string]string{"SPOTIFY_ID": "client"}},
		{name: "rate limit window too short", envVars: map[string]string{"RATE_LIMIT_WINDOW": "10ms"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			if _, err := LoadWithKoanf(); err == nil {
				t.Error("LoadWithKoanf() expected error, got nil")
			}
		})
	}
}
