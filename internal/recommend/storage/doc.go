// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

// Package storage provides versioned blob persistence for trained models.
//
// # Storage Format
//
// Each model version is one blob:
//
//	key: {name}_v{version}.gob.zst
//
//	structure (gob):
//	  - Metadata (ModelMetadata, including a SHA-256 of the payload)
//	  - CompressedData (zstd-compressed gob encoding of the model)
//
// The checksum is verified on every load, so a truncated or tampered blob is
// reported instead of decoded.
//
// # Backends
//
// Blobs live on a Backend. FileBackend keeps them in a local directory and
// writes through a rename so a crash never leaves a partial file behind.
// MinioBackend keeps them in a MinIO or other S3-compatible bucket.
//
// # Usage Example
//
//	store, err := storage.NewFileStore(ctx, "/data/models")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	meta, err := store.SaveNext(ctx, "kdtree", bundle, storage.ModelMetadata{
//	    TrainedAt:  time.Now(),
//	    TrackCount: len(ids),
//	})
//
//	var restored Bundle
//	meta, err = store.Load(ctx, "kdtree", 0, &restored) // 0 = latest
//
//	removed, err := store.Prune(ctx, "kdtree", 3)
package storage
