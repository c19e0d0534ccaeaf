// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateRecommend(); err != nil {
		return err
	}

	if err := c.validateCatalog(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

// validateServer validates HTTP server settings
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// validateSecurity validates rate limiting and admin access
func (c *Config) validateSecurity() error {
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	if c.Security.AdminToken != "" && containsPlaceholder(c.Security.AdminToken) {
		return fmt.Errorf("ADMIN_TOKEN appears to be a placeholder value; set a real secret")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if a wildcard CORS origin is used in production.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS() && c.IsProduction()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// validateRecommend checks the engine settings that can be checked without the
// feature table. Dimension bounds against the column count are enforced again
// by the engine itself.
func (c *Config) validateRecommend() error {
	r := &c.Recommend
	if len(r.FeatureColumns) == 0 {
		return fmt.Errorf("RECOMMEND_FEATURE_COLUMNS must not be empty")
	}
	if r.Dimensions < 1 || r.Dimensions > len(r.FeatureColumns) {
		return fmt.Errorf("RECOMMEND_DIMENSIONS must be between 1 and %d (number of feature columns), got %d",
			len(r.FeatureColumns), r.Dimensions)
	}
	if r.LeafSize < 1 {
		return fmt.Errorf("RECOMMEND_LEAF_SIZE must be positive")
	}
	if r.KeepVersions < 1 {
		return fmt.Errorf("RECOMMEND_KEEP_VERSIONS must be positive")
	}
	if r.TrainInterval < 0 {
		return fmt.Errorf("RECOMMEND_TRAIN_INTERVAL must not be negative")
	}
	return c.validateBlob()
}

func (c *Config) validateBlob() error {
	b := &c.Recommend.Blob
	switch b.Backend {
	case "file":
		if b.Path == "" {
			return fmt.Errorf("MODEL_PATH is required when MODEL_BLOB_BACKEND=file")
		}
	case "minio":
		if b.Endpoint == "" || b.Bucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required when MODEL_BLOB_BACKEND=minio")
		}
		if strings.Contains(b.Endpoint, "://") {
			return fmt.Errorf("MINIO_ENDPOINT must be host[:port] without a scheme, got %q", b.Endpoint)
		}
	default:
		return fmt.Errorf("MODEL_BLOB_BACKEND must be one of: file, minio")
	}
	return nil
}

// validateCatalog validates the Spotify client settings (only if enabled)
func (c *Config) validateCatalog() error {
	cat := &c.Catalog
	if (cat.ClientID == "") != (cat.ClientSecret == "") {
		return fmt.Errorf("SPOTIFY_ID and SPOTIFY_SECRET must be set together")
	}
	if !cat.Enabled() {
		return nil
	}
	if err := validateHTTPURL(cat.AccountsURL, "SPOTIFY_ACCOUNTS_URL"); err != nil {
		return err
	}
	if err := validateHTTPURL(cat.APIURL, "SPOTIFY_API_URL"); err != nil {
		return err
	}
	if cat.RateLimit <= 0 || cat.Burst < 1 {
		return fmt.Errorf("CATALOG_RATE_LIMIT and CATALOG_BURST must be positive")
	}
	if cat.MaxRetries < 0 {
		return fmt.Errorf("CATALOG_MAX_RETRIES must not be negative")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate
// the user forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

// containsPlaceholder checks if a value contains common placeholder patterns
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
