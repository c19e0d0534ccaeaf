// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package storage

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// testModel stands in for a trained bundle.
type testModel struct {
	IDs     []string
	Vectors [][]float64
	Label   string
}

func sampleModel() testModel {
	return testModel{
		IDs:     []string{"a", "b", "c"},
		Vectors: [][]float64{{0, 1}, {1, 0}, {0.5, 0.5}},
		Label:   "sample",
	}
}

// memoryBackend is an in-memory Backend for tests.
type memoryBackend struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{blobs: make(map[string][]byte)}
}

func (m *memoryBackend) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memoryBackend) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewFileStore(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestNewFileStore(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "creates directory if not exists",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "new_dir")
			},
		},
		{
			name: "uses existing directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			store, err := NewFileStore(context.Background(), dir)
			if err != nil {
				t.Fatalf("NewFileStore() error = %v", err)
			}
			defer store.Close()
			if _, err := os.Stat(dir); err != nil {
				t.Errorf("directory not created: %v", err)
			}
		})
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta, err := store.Save(ctx, "kdtree", 1, sampleModel(), ModelMetadata{
		TrainedAt:  time.Now(),
		TrackCount: 3,
		Dimensions: 2,
		LeafSize:   7,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if meta.Checksum == "" {
		t.Error("Checksum should not be empty")
	}
	if meta.SizeBytes == 0 {
		t.Error("SizeBytes should not be zero")
	}

	var loaded testModel
	loadedMeta, err := store.Load(ctx, "kdtree", 1, &loaded)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loadedMeta.Name != "kdtree" {
		t.Errorf("Name = %s, want kdtree", loadedMeta.Name)
	}
	if loadedMeta.Version != 1 {
		t.Errorf("Version = %d, want 1", loadedMeta.Version)
	}
	if loadedMeta.TrackCount != 3 || loadedMeta.Dimensions != 2 || loadedMeta.LeafSize != 7 {
		t.Errorf("metadata = %+v", loadedMeta)
	}
	if loaded.Label != "sample" || len(loaded.IDs) != 3 || loaded.Vectors[2][1] != 0.5 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestStore_LoadLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for v := 1; v <= 3; v++ {
		m := sampleModel()
		m.Label = strings.Repeat("v", v)
		if _, err := store.Save(ctx, "kdtree", v, m, ModelMetadata{}); err != nil {
			t.Fatalf("Save(v%d) error = %v", v, err)
		}
	}

	var loaded testModel
	meta, err := store.Load(ctx, "kdtree", 0, &loaded)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if meta.Version != 3 || loaded.Label != "vvv" {
		t.Errorf("latest = v%d %q, want v3 vvv", meta.Version, loaded.Label)
	}

	next, err := store.SaveNext(ctx, "kdtree", sampleModel(), ModelMetadata{})
	if err != nil {
		t.Fatalf("SaveNext() error = %v", err)
	}
	if next.Version != 4 {
		t.Errorf("SaveNext version = %d, want 4", next.Version)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	var loaded testModel
	_, err := store.Load(context.Background(), "kdtree", 0, &loaded)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}

	_, err = store.Load(context.Background(), "kdtree", 9, &loaded)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(v9) error = %v, want ErrNotFound", err)
	}
}

func TestStore_ScanExisting(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(ctx, dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	for v := 1; v <= 2; v++ {
		if _, err := first.Save(ctx, "kdtree", v, sampleModel(), ModelMetadata{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	first.Close()

	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	second, err := NewFileStore(ctx, dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	defer second.Close()

	v, ok := second.GetLatestVersion("kdtree")
	if !ok || v != 2 {
		t.Errorf("GetLatestVersion() = %d, %v; want 2, true", v, ok)
	}
}

func TestStore_ChecksumMismatch(t *testing.T) {
	backend := newMemoryBackend()
	ctx := context.Background()
	store, err := NewStore(ctx, backend)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	if _, err := store.Save(ctx, "kdtree", 1, sampleModel(), ModelMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	sf, err := store.readFile(ctx, "kdtree", 1)
	if err != nil {
		t.Fatalf("readFile() error = %v", err)
	}
	sf.Metadata.Checksum = strings.Repeat("0", 64)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sf); err != nil {
		t.Fatal(err)
	}
	if err := backend.Put(ctx, modelKey("kdtree", 1), buf.Bytes()); err != nil {
		t.Fatal(err)
	}

	var loaded testModel
	_, err = store.Load(ctx, "kdtree", 1, &loaded)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Load() error = %v, want ErrChecksumMismatch", err)
	}
}

func TestStore_CorruptBlob(t *testing.T) {
	backend := newMemoryBackend()
	ctx := context.Background()
	store, err := NewStore(ctx, backend)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	if err := backend.Put(ctx, modelKey("kdtree", 1), []byte("not a gob")); err != nil {
		t.Fatal(err)
	}

	var loaded testModel
	if _, err := store.Load(ctx, "kdtree", 1, &loaded); err == nil {
		t.Error("Load() expected error for corrupt blob")
	}
}

func TestStore_Prune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for v := 1; v <= 5; v++ {
		if _, err := store.Save(ctx, "kdtree", v, sampleModel(), ModelMetadata{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	if _, err := store.Save(ctx, "other", 1, sampleModel(), ModelMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	removed, err := store.Prune(ctx, "kdtree", 2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("Prune() removed %d, want 3", removed)
	}

	versions, err := store.versionsOf(ctx, "kdtree")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 || versions[0] != 5 || versions[1] != 4 {
		t.Errorf("remaining versions = %v, want [5 4]", versions)
	}

	if v, _ := store.GetLatestVersion("other"); v != 1 {
		t.Errorf("other model touched by prune: latest = %d", v)
	}

	// Unknown names are a no-op.
	if removed, err := store.Prune(ctx, "missing", 1); err != nil || removed != 0 {
		t.Errorf("Prune(missing) = %d, %v", removed, err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for v := 1; v <= 2; v++ {
		if _, err := store.Save(ctx, "kdtree", v, sampleModel(), ModelMetadata{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	if err := store.Delete(ctx, "kdtree", 2); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if v, ok := store.GetLatestVersion("kdtree"); !ok || v != 1 {
		t.Errorf("latest after delete = %d, %v; want 1, true", v, ok)
	}

	if err := store.Delete(ctx, "kdtree", 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := store.GetLatestVersion("kdtree"); ok {
		t.Error("latest version should be gone")
	}
}

func TestStore_ListModels(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		if _, err := store.Save(ctx, name, 1, sampleModel(), ModelMetadata{TrackCount: 3}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	models, err := store.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0].Name != "alpha" || models[1].Name != "zeta" {
		t.Errorf("ListModels() = %+v", models)
	}
}

func TestStore_SaveValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		model   string
		version int
	}{
		{name: "empty name", model: "", version: 1},
		{name: "path separator", model: "../x", version: 1},
		{name: "zero version", model: "kdtree", version: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Save(ctx, tt.model, tt.version, sampleModel(), ModelMetadata{}); err == nil {
				t.Error("Save() expected error")
			}
		})
	}
}

func TestParseModelKey(t *testing.T) {
	tests := []struct {
		key     string
		name    string
		version int
		ok      bool
	}{
		{key: "kdtree_v1.gob.zst", name: "kdtree", version: 1, ok: true},
		{key: "my_model_v12.gob.zst", name: "my_model", version: 12, ok: true},
		{key: "kdtree_v1.gob.gz", ok: false},
		{key: "kdtree.gob.zst", ok: false},
		{key: "_v1.gob.zst", ok: false},
		{key: "kdtree_vx.gob.zst", ok: false},
		{key: "kdtree_v0.gob.zst", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			name, version, ok := parseModelKey(tt.key)
			if ok != tt.ok || name != tt.name || version != tt.version {
				t.Errorf("parseModelKey(%q) = %q, %d, %v; want %q, %d, %v",
					tt.key, name, version, ok, tt.name, tt.version, tt.ok)
			}
		})
	}
}

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := backend.Put(ctx, "a.bin", []byte("one")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := backend.Put(ctx, "a.bin", []byte("two")); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}

	got, err := backend.Get(ctx, "a.bin")
	if err != nil || string(got) != "two" {
		t.Errorf("Get() = %q, %v", got, err)
	}

	if _, err := backend.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	for _, bad := range []string{"", "..", "x/y"} {
		if err := backend.Put(ctx, bad, nil); err == nil {
			t.Errorf("Put(%q) expected error", bad)
		}
	}

	keys, err := backend.List(ctx)
	if err != nil || len(keys) != 1 || keys[0] != "a.bin" {
		t.Errorf("List() = %v, %v", keys, err)
	}

	if err := backend.Delete(ctx, "a.bin"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := backend.Delete(ctx, "a.bin"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestMinioBackendKeys(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		object string
	}{
		{prefix: "", key: "kdtree_v1.gob.zst", object: "kdtree_v1.gob.zst"},
		{prefix: "models", key: "kdtree_v1.gob.zst", object: "models/kdtree_v1.gob.zst"},
		{prefix: "/models/", key: "kdtree_v2.gob.zst", object: "models/kdtree_v2.gob.zst"},
	}

	for _, tt := range tests {
		t.Run(tt.object, func(t *testing.T) {
			b := NewMinioBackendWithClient(nil, "bucket", tt.prefix)
			if got := b.objectKey(tt.key); got != tt.object {
				t.Errorf("objectKey() = %q, want %q", got, tt.object)
			}
			if got := b.blobKey(tt.object); got != tt.key {
				t.Errorf("blobKey() = %q, want %q", got, tt.key)
			}
		})
	}
}

func TestNewMinioBackendRequiresBucket(t *testing.T) {
	if _, err := NewMinioBackend(context.Background(), MinioConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Error("expected error for missing bucket")
	}
}
