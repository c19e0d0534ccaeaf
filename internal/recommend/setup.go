// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package recommend

import (
	"context"
	"fmt"

	"github.com/tomtom215/tracksim/internal/config"
	"github.com/tomtom215/tracksim/internal/recommend/storage"
)

// EngineConfig converts application settings into engine settings.
func EngineConfig(rc *config.RecommendConfig) *Config {
	cfg := DefaultConfig()
	cfg.Dimensions = rc.Dimensions
	cfg.LeafSize = rc.LeafSize
	cfg.ReuseModel = rc.ReuseModel
	cfg.ModelName = rc.ModelName
	cfg.KeepVersions = rc.KeepVersions
	cfg.MaxQueryIDs = rc.MaxQueryIDs
	cfg.MaxRecommendations = rc.MaxRecommendations
	if len(rc.FeatureColumns) > 0 {
		cfg.FeatureColumns = append([]string(nil), rc.FeatureColumns...)
	}
	if rc.TrainTimeout > 0 {
		cfg.TrainTimeout = rc.TrainTimeout
	}
	return cfg
}

// OpenBlobStore builds the model blob store for the configured backend.
func OpenBlobStore(ctx context.Context, bc *config.BlobConfig) (*storage.Store, error) {
	var backend storage.Backend
	switch bc.Backend {
	case "", "file":
		fb, err := storage.NewFileBackend(bc.Path)
		if err != nil {
			return nil, err
		}
		backend = fb
	case "minio":
		mb, err := storage.NewMinioBackend(ctx, storage.MinioConfig{
			Endpoint:  bc.Endpoint,
			AccessKey: bc.AccessKey,
			SecretKey: bc.SecretKey,
			Bucket:    bc.Bucket,
			Prefix:    bc.Prefix,
			Region:    bc.Region,
			UseSSL:    bc.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		backend = mb
	default:
		return nil, fmt.Errorf("unknown model blob backend %q", bc.Backend)
	}
	return storage.NewStore(ctx, backend)
}
