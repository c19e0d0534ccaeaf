// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package recommend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/tracksim/internal/features"
	"github.com/tomtom215/tracksim/internal/kdtree"
	"github.com/tomtom215/tracksim/internal/recommend/storage"
	"github.com/tomtom215/tracksim/internal/reduce"
)

// EmbeddingTable is the structured table holding one embedding per track.
const EmbeddingTable = "pr_comps"

// EmbeddingStore is the structured half of a persisted model. The database
// package implements it.
type EmbeddingStore interface {
	// ReadEmbeddings returns every stored (id, embedding) pair.
	ReadEmbeddings(ctx context.Context) (ids []string, vectors [][]float64, err error)

	// WriteEmbeddings replaces the embedding table.
	WriteEmbeddings(ctx context.Context, ids []string, vectors [][]float64) error

	// TableExists reports whether a table is present.
	TableExists(ctx context.Context, name string) (bool, error)
}

// bundle is the gob form of an Artifact.
type bundle struct {
	Normalizer       features.Params
	Projection       reduce.Projection
	Index            *kdtree.Tree
	TrainedAt        time.Time
	TrainingDuration time.Duration
}

// ModelStore persists an Artifact as a versioned blob plus the embedding table.
// Both halves are written on every save and cross-checked on every load.
type ModelStore struct {
	blobs      *storage.Store
	embeddings EmbeddingStore
	name       string
}

// NewModelStore creates a ModelStore. name is the blob model name.
func NewModelStore(blobs *storage.Store, embeddings EmbeddingStore, name string) *ModelStore {
	return &ModelStore{blobs: blobs, embeddings: embeddings, name: name}
}

// Save writes the artifact as the next blob version and replaces the
// embedding table.
func (m *ModelStore) Save(ctx context.Context, a *Artifact) (*storage.ModelMetadata, error) {
	b := bundle{
		Normalizer:       *a.Normalizer,
		Projection:       *a.Projection,
		Index:            a.Index,
		TrainedAt:        a.TrainedAt,
		TrainingDuration: a.TrainingDuration,
	}

	meta, err := m.blobs.SaveNext(ctx, m.name, b, storage.ModelMetadata{
		TrainedAt:          a.TrainedAt,
		TrackCount:         a.Len(),
		Dimensions:         a.Dimensions(),
		LeafSize:           a.Index.LeafSize(),
		TrainingDurationMS: a.TrainingDuration.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("save model blob: %w", err)
	}

	ids := a.Index.IDs()
	vectors := make([][]float64, len(ids))
	for i, id := range ids {
		vectors[i], _ = a.Index.Point(id)
	}
	if err := m.embeddings.WriteEmbeddings(ctx, ids, vectors); err != nil {
		return nil, fmt.Errorf("save embedding table: %w", err)
	}

	return meta, nil
}

// Load restores the latest artifact. It fails with ErrArtifactNotFound if
// either half is missing and with *InconsistentArtifactError if they disagree.
func (m *ModelStore) Load(ctx context.Context) (*Artifact, *storage.ModelMetadata, error) {
	exists, err := m.embeddings.TableExists(ctx, EmbeddingTable)
	if err != nil {
		return nil, nil, fmt.Errorf("check embedding table: %w", err)
	}
	if !exists {
		return nil, nil, fmt.Errorf("%w: table %s does not exist", ErrArtifactNotFound, EmbeddingTable)
	}

	var b bundle
	meta, err := m.blobs.Load(ctx, m.name, 0, &b)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %v", ErrArtifactNotFound, err)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load model blob: %w", err)
	}
	if b.Index == nil {
		return nil, nil, &InconsistentArtifactError{Reason: "blob has no index"}
	}

	ids, vectors, err := m.embeddings.ReadEmbeddings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read embedding table: %w", err)
	}
	if err := verifyEmbeddings(b.Index, ids, vectors); err != nil {
		return nil, nil, err
	}
	if b.Projection.Dimensions() != b.Index.Dim() {
		return nil, nil, &InconsistentArtifactError{Reason: fmt.Sprintf(
			"projection has %d components, index has %d dimensions", b.Projection.Dimensions(), b.Index.Dim())}
	}
	if b.Normalizer.Dim() != b.Projection.InputDim() {
		return nil, nil, &InconsistentArtifactError{Reason: fmt.Sprintf(
			"normalizer has %d dimensions, projection expects %d", b.Normalizer.Dim(), b.Projection.InputDim())}
	}

	return &Artifact{
		Normalizer:       &b.Normalizer,
		Projection:       &b.Projection,
		Index:            b.Index,
		TrainedAt:        b.TrainedAt,
		TrainingDuration: b.TrainingDuration,
	}, meta, nil
}

// Prune removes all but the newest keep blob versions.
func (m *ModelStore) Prune(ctx context.Context, keep int) (int, error) {
	return m.blobs.Prune(ctx, m.name, keep)
}

// verifyEmbeddings checks that the table holds exactly the indexed ids with
// identical vectors.
func verifyEmbeddings(index *kdtree.Tree, ids []string, vectors [][]float64) error {
	if len(ids) != len(vectors) {
		return &InconsistentArtifactError{Reason: fmt.Sprintf("%d ids for %d vectors", len(ids), len(vectors))}
	}
	if len(ids) != index.Len() {
		return &InconsistentArtifactError{Reason: fmt.Sprintf(
			"embedding table has %d tracks, index has %d", len(ids), index.Len())}
	}

	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			return &InconsistentArtifactError{Reason: fmt.Sprintf("track %q appears twice in embedding table", id)}
		}
		seen[id] = struct{}{}

		point, ok := index.Point(id)
		if !ok {
			return &InconsistentArtifactError{Reason: fmt.Sprintf("track %q is not indexed", id)}
		}
		if len(vectors[i]) != len(point) {
			return &InconsistentArtifactError{Reason: fmt.Sprintf(
				"track %q has %d dimensions in table, %d in index", id, len(vectors[i]), len(point))}
		}
		if !slices.Equal(vectors[i], point) {
			return &InconsistentArtifactError{Reason: fmt.Sprintf("track %q embedding differs from index", id)}
		}
	}
	return nil
}
