// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// modelSuffix is appended to every versioned model key.
const modelSuffix = ".gob.zst"

// ErrChecksumMismatch is returned when a decompressed payload does not match
// the checksum recorded at save time.
var ErrChecksumMismatch = errors.New("model checksum mismatch")

// ModelMetadata contains information about a stored model.
type ModelMetadata struct {
	// Name is the model family (e.g., "kdtree").
	Name string `json:"name"`

	// Version is the model version (monotonically increasing).
	Version int `json:"version"`

	// TrainedAt is when the model was trained.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the model was saved.
	SavedAt time.Time `json:"saved_at"`

	// TrackCount is the number of indexed tracks.
	TrackCount int `json:"track_count"`

	// Dimensions is the embedding length.
	Dimensions int `json:"dimensions"`

	// LeafSize is the leaf capacity of the spatial index.
	LeafSize int `json:"leaf_size"`

	// Checksum is the SHA-256 checksum of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed model size in bytes.
	SizeBytes int64 `json:"size_bytes"`

	// TrainingDurationMS is how long training took.
	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// storedFile is the on-backend format for model blobs.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Store manages versioned model blobs on a Backend.
type Store struct {
	backend Backend
	mu      sync.RWMutex

	// Keep track of latest version per model name
	versions map[string]int

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewStore creates a store over backend and indexes the versions already there.
func NewStore(ctx context.Context, backend Backend) (*Store, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	s := &Store{
		backend:  backend,
		versions: make(map[string]int),
		encoder:  enc,
		decoder:  dec,
	}

	if err := s.scanModels(ctx); err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}

	return s, nil
}

// NewFileStore is a convenience for a Store over a local directory.
func NewFileStore(ctx context.Context, dir string) (*Store, error) {
	backend, err := NewFileBackend(dir)
	if err != nil {
		return nil, err
	}
	return NewStore(ctx, backend)
}

// Close releases the decoder's goroutines.
func (s *Store) Close() {
	s.decoder.Close()
}

// scanModels records the highest version of every model on the backend.
func (s *Store) scanModels(ctx context.Context) error {
	keys, err := s.backend.List(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		name, version, ok := parseModelKey(key)
		if !ok {
			continue
		}
		if current, found := s.versions[name]; !found || version > current {
			s.versions[name] = version
		}
	}

	return nil
}

// parseModelKey splits a key like "kdtree_v3.gob.zst".
func parseModelKey(key string) (name string, version int, ok bool) {
	base, found := strings.CutSuffix(key, modelSuffix)
	if !found {
		return "", 0, false
	}

	idx := strings.LastIndex(base, "_v")
	if idx < 1 {
		return "", 0, false
	}

	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version < 1 {
		return "", 0, false
	}

	return base[:idx], version, true
}

// modelKey returns the backend key for a model version.
func modelKey(name string, version int) string {
	return fmt.Sprintf("%s_v%d%s", name, version, modelSuffix)
}

// Save stores a model with the given name and data.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, version int, data any, meta ModelMetadata) (*ModelMetadata, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid model name %q", name)
	}
	if version < 1 {
		return nil, fmt.Errorf("model version must be positive, got %d", version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)
	meta.Checksum = hex.EncodeToString(hash[:])

	compressed := s.encoder.EncodeAll(rawData, nil)

	meta.SizeBytes = int64(len(compressed))
	meta.SavedAt = time.Now()
	meta.Name = name
	meta.Version = version

	var file bytes.Buffer
	if err := gob.NewEncoder(&file).Encode(storedFile{Metadata: meta, CompressedData: compressed}); err != nil {
		return nil, fmt.Errorf("encode model file: %w", err)
	}
	if err := s.backend.Put(ctx, modelKey(name, version), file.Bytes()); err != nil {
		return nil, fmt.Errorf("write model file: %w", err)
	}

	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}

	return &meta, nil
}

// SaveNext stores data as the version after the latest one.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) SaveNext(ctx context.Context, name string, data any, meta ModelMetadata) (*ModelMetadata, error) {
	next, _ := s.GetLatestVersion(name)
	return s.Save(ctx, name, next+1, data, meta)
}

// Load loads a model by name and version.
// If version is 0, loads the latest version.
func (s *Store) Load(ctx context.Context, name string, version int, target any) (*ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("%w: no model stored for %s", ErrNotFound, name)
		}
	}

	sf, err := s.readFile(ctx, name, version)
	if err != nil {
		return nil, err
	}

	rawData, err := s.decoder.DecodeAll(sf.CompressedData, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}

	hash := sha256.Sum256(rawData)
	checksum := hex.EncodeToString(hash[:])
	if checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	return &sf.Metadata, nil
}

func (s *Store) readFile(ctx context.Context, name string, version int) (*storedFile, error) {
	data, err := s.backend.Get(ctx, modelKey(name, version))
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	var sf storedFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode model file: %w", err)
	}
	return &sf, nil
}

// GetLatestVersion returns the latest version number for a model.
func (s *Store) GetLatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[name]
	return version, ok
}

// ListModels returns metadata for the latest version of every stored model,
// sorted by name.
func (s *Store) ListModels(ctx context.Context) ([]ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	models := make([]ModelMetadata, 0, len(s.versions))
	for name, version := range s.versions {
		sf, err := s.readFile(ctx, name, version)
		if err != nil {
			continue
		}
		models = append(models, sf.Metadata)
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// versionsOf returns every stored version of name, newest first.
func (s *Store) versionsOf(ctx context.Context, name string) ([]int, error) {
	keys, err := s.backend.List(ctx)
	if err != nil {
		return nil, err
	}

	var versions []int
	for _, key := range keys {
		n, v, ok := parseModelKey(key)
		if ok && n == name {
			versions = append(versions, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	return versions, nil
}

// Delete removes a specific model version.
func (s *Store) Delete(ctx context.Context, name string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(ctx, modelKey(name, version)); err != nil {
		return fmt.Errorf("delete model: %w", err)
	}

	if s.versions[name] != version {
		return nil
	}

	remaining, err := s.versionsOf(ctx, name)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if len(remaining) == 0 {
		delete(s.versions, name)
	} else {
		s.versions[name] = remaining[0]
	}

	return nil
}

// Prune removes old model versions, keeping only the latest N versions.
// It returns the number of versions removed.
func (s *Store) Prune(ctx context.Context, name string, keepVersions int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keepVersions < 1 {
		keepVersions = 1
	}

	if _, ok := s.versions[name]; !ok {
		return 0, nil
	}

	versions, err := s.versionsOf(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("list models: %w", err)
	}

	removed := 0
	for i := keepVersions; i < len(versions); i++ {
		if err := s.backend.Delete(ctx, modelKey(name, versions[i])); err != nil {
			return removed, fmt.Errorf("delete model v%d: %w", versions[i], err)
		}
		removed++
	}

	return removed, nil
}

// Register gob types for serialization.
//
//nolint:gochecknoinits // gob.Register must be called in init for type registration
func init() {
	gob.Register(ModelMetadata{})
	gob.Register(storedFile{})
}
