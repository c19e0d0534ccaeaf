// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/tracksim/internal/config"
	"github.com/tomtom215/tracksim/internal/models"
)

// testDBSemaphore limits concurrent DuckDB instances across parallel tests.
var testDBSemaphore = make(chan struct{}, 4)

// testDBMutex serializes database creation.
var testDBMutex sync.Mutex

// setupTestDB creates an in-memory database that is closed when the test ends.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:                   ":memory:",
		MaxMemory:              "1GB",
		PreserveInsertionOrder: true,
	}

	type result struct {
		db  *DB
		err error
	}

	resultCh := make(chan result, 1)
	go func() {
		testDBMutex.Lock()
		db, err := New(cfg)
		testDBMutex.Unlock()
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

func testTrack(id string, idx, albumID int, name string, energy, tempo float64) models.Track {
	return models.Track{
		TrackID:          id,
		Idx:              idx,
		TrackName:        name,
		AlbumID:          albumID,
		Popularity:       float64(50 + idx),
		DurationMS:       200000 + float64(idx)*1000,
		Danceability:     0.5,
		Energy:           energy,
		Key:              idx % 12,
		Loudness:         -6,
		Mode:             1,
		Speechiness:      0.05,
		Acousticness:     0.1,
		Instrumentalness: 0,
		Liveness:         0.1,
		Valence:          0.4,
		Tempo:            tempo,
		TimeSignature:    4,
		TrackGenre:       "pop",
	}
}

// sampleDataset returns three tracks; t2 credits two artists.
func sampleDataset() *models.Dataset {
	return &models.Dataset{
		Tracks: []models.Track{
			testTrack("t0", 0, 1, "Comedy", 0.46, 87.9),
			testTrack("t1", 1, 2, "Ghost - Acoustic", 0.17, 77.4),
			testTrack("t2", 2, 1, "To Begin Again", 0.36, 76.3),
		},
		Albums:  []models.Album{{AlbumID: 1, Album: "Comedy"}, {AlbumID: 2, Album: "Ghost"}},
		Artists: []models.Artist{{ArtistID: 1, Artist: "Gen Hoshino"}, {ArtistID: 2, Artist: "Ben Woodward"}, {ArtistID: 3, Artist: "Ingrid Michaelson"}, {ArtistID: 4, Artist: "ZAYN"}},
		TrackArtists: []models.TrackArtist{
			{TrackID: "t0", ArtistID: 1, Position: 0},
			{TrackID: "t1", ArtistID: 2, Position: 0},
			{TrackID: "t2", ArtistID: 3, Position: 0},
			{TrackID: "t2", ArtistID: 4, Position: 1},
		},
	}
}

func loadSample(t *testing.T, db *DB) {
	t.Helper()
	if err := db.LoadDataset(context.Background(), sampleDataset()); err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
}

func TestNew_CreatesSchema(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	for _, table := range catalogTables {
		exists, err := db.TableExists(ctx, table)
		if err != nil {
			t.Fatalf("TableExists(%s) error = %v", table, err)
		}
		if !exists {
			t.Errorf("table %s should exist after New", table)
		}
	}

	exists, err := db.TableExists(ctx, embeddingTable)
	if err != nil {
		t.Fatalf("TableExists(%s) error = %v", embeddingTable, err)
	}
	if exists {
		t.Errorf("%s should not exist before a model is saved", embeddingTable)
	}

	if err := db.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestCatalogEmptyAndLoad(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	empty, err := db.CatalogEmpty(ctx)
	if err != nil {
		t.Fatalf("CatalogEmpty() error = %v", err)
	}
	if !empty {
		t.Error("fresh catalog should be empty")
	}

	loadSample(t, db)

	empty, err = db.CatalogEmpty(ctx)
	if err != nil {
		t.Fatalf("CatalogEmpty() error = %v", err)
	}
	if empty {
		t.Error("catalog should not be empty after LoadDataset")
	}

	counts, err := db.RecordCounts(ctx)
	if err != nil {
		t.Fatalf("RecordCounts() error = %v", err)
	}
	want := sampleDataset().Counts()
	for table, n := range want {
		if counts[table] != n {
			t.Errorf("RecordCounts()[%s] = %d, want %d", table, counts[table], n)
		}
	}
}

func TestLoadDatasetReplaces(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	loadSample(t, db)

	// Loading twice must not trip primary keys and must not duplicate rows.
	loadSample(t, db)

	smaller := &models.Dataset{
		Tracks:       []models.Track{testTrack("x", 0, 1, "Only", 0.5, 100)},
		Albums:       []models.Album{{AlbumID: 1, Album: "Only"}},
		Artists:      []models.Artist{{ArtistID: 1, Artist: "Solo"}},
		TrackArtists: []models.TrackArtist{{TrackID: "x", ArtistID: 1}},
	}
	if err := db.LoadDataset(ctx, smaller); err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}

	counts, err := db.RecordCounts(ctx)
	if err != nil {
		t.Fatalf("RecordCounts() error = %v", err)
	}
	if counts["tracks"] != 1 || counts["tracks_artists"] != 1 {
		t.Errorf("RecordCounts() = %v, want a single track", counts)
	}
}

func TestTrackSummaries(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	loadSample(t, db)

	all, err := db.TrackSummaries(ctx, nil, 0)
	if err != nil {
		t.Fatalf("TrackSummaries() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("TrackSummaries() returned %d rows, want 3", len(all))
	}
	for i, want := range []string{"t0", "t1", "t2"} {
		if all[i].TrackID != want {
			t.Errorf("row %d = %s, want %s (idx order)", i, all[i].TrackID, want)
		}
	}
	if all[2].Artists != "Ingrid Michaelson, ZAYN" {
		t.Errorf("Artists = %q, want credit order joined by \", \"", all[2].Artists)
	}
	if all[2].TrackArtist != "To Begin Again by Ingrid Michaelson, ZAYN" {
		t.Errorf("TrackArtist = %q", all[2].TrackArtist)
	}

	limited, err := db.TrackSummaries(ctx, nil, 2)
	if err != nil {
		t.Fatalf("TrackSummaries(limit 2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit 2 returned %d rows", len(limited))
	}

	byID, err := db.SummariesByID(ctx, []string{"t1", "missing"})
	if err != nil {
		t.Fatalf("SummariesByID() error = %v", err)
	}
	if len(byID) != 1 || byID["t1"].TrackName != "Ghost - Acoustic" {
		t.Errorf("SummariesByID() = %v", byID)
	}

	if _, err := db.TrackSummaries(ctx, []Filter{Eq("t.track_id; DROP TABLE tracks", "x")}, 0); !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("injected column error = %v, want ErrInvalidColumn", err)
	}
}

func TestAutocomplete(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	loadSample(t, db)

	tests := []struct {
		name  string
		q     string
		limit int
		want  []string
	}{
		{name: "case insensitive", q: "GHOST", want: []string{"t1"}},
		{name: "substring", q: "o", want: []string{"t0", "t1", "t2"}},
		{name: "limit", q: "o", limit: 1, want: []string{"t0"}},
		{name: "wildcard is literal", q: "%", want: nil},
		{name: "underscore is literal", q: "_", want: nil},
		{name: "no match", q: "zzz", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Autocomplete(ctx, tt.q, tt.limit)
			if err != nil {
				t.Fatalf("Autocomplete(%q) error = %v", tt.q, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Autocomplete(%q) returned %d rows, want %d", tt.q, len(got), len(tt.want))
			}
			for i := range got {
				if got[i].TrackID != tt.want[i] {
					t.Errorf("row %d = %s, want %s", i, got[i].TrackID, tt.want[i])
				}
			}
		})
	}
}

func TestReadFeatureTable(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	loadSample(t, db)

	table, err := db.ReadFeatureTable(ctx, []string{"energy", "tempo", "mode"})
	if err != nil {
		t.Fatalf("ReadFeatureTable() error = %v", err)
	}
	if err := table.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if table.Len() != 3 || table.Dim() != 3 {
		t.Fatalf("table is %dx%d, want 3x3", table.Len(), table.Dim())
	}
	if table.IDs[1] != "t1" {
		t.Errorf("IDs[1] = %s, want t1", table.IDs[1])
	}
	if math.Abs(table.Rows[1][0]-0.17) > 1e-12 || math.Abs(table.Rows[1][1]-77.4) > 1e-12 {
		t.Errorf("Rows[1] = %v", table.Rows[1])
	}
}

func TestReadFeatureTableRejectsColumns(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		columns []string
	}{
		{"empty", nil},
		{"identifier", []string{"energy", "idx"}},
		{"album id", []string{"album_id"}},
		{"categorical key", []string{"key"}},
		{"time signature", []string{"time_signature"}},
		{"explicit", []string{"explicit"}},
		{"unknown", []string{"track_genre"}},
		{"duplicate", []string{"energy", "energy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.ReadFeatureTable(ctx, tt.columns)
			if !errors.Is(err, ErrInvalidColumn) {
				t.Errorf("ReadFeatureTable(%v) error = %v, want ErrInvalidColumn", tt.columns, err)
			}
		})
	}
}

func TestEmbeddingsRoundTrip(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	if _, _, err := db.ReadEmbeddings(ctx); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("ReadEmbeddings() before write error = %v, want ErrTableNotFound", err)
	}

	ids := []string{"b", "a", "c"}
	vectors := [][]float64{{1, 2}, {-0.5, 3.25}, {0, 0}}
	if err := db.WriteEmbeddings(ctx, ids, vectors); err != nil {
		t.Fatalf("WriteEmbeddings() error = %v", err)
	}

	exists, err := db.TableExists(ctx, embeddingTable)
	if err != nil || !exists {
		t.Fatalf("TableExists(%s) = %v, %v", embeddingTable, exists, err)
	}

	gotIDs, gotVecs, err := db.ReadEmbeddings(ctx)
	if err != nil {
		t.Fatalf("ReadEmbeddings() error = %v", err)
	}
	want := map[string][]float64{"a": {-0.5, 3.25}, "b": {1, 2}, "c": {0, 0}}
	if len(gotIDs) != len(want) {
		t.Fatalf("ReadEmbeddings() returned %d rows, want %d", len(gotIDs), len(want))
	}
	for i, id := range gotIDs {
		w := want[id]
		if len(gotVecs[i]) != len(w) || gotVecs[i][0] != w[0] || gotVecs[i][1] != w[1] {
			t.Errorf("vector %s = %v, want %v", id, gotVecs[i], w)
		}
	}

	// Rewriting with a different width replaces the table.
	if err := db.WriteEmbeddings(ctx, []string{"z"}, [][]float64{{1, 2, 3}}); err != nil {
		t.Fatalf("WriteEmbeddings() rewrite error = %v", err)
	}
	gotIDs, gotVecs, err = db.ReadEmbeddings(ctx)
	if err != nil {
		t.Fatalf("ReadEmbeddings() error = %v", err)
	}
	if len(gotIDs) != 1 || gotIDs[0] != "z" || len(gotVecs[0]) != 3 {
		t.Errorf("after rewrite got %v %v", gotIDs, gotVecs)
	}
}

func TestWriteEmbeddingsRejectsRaggedInput(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.WriteEmbeddings(ctx, []string{"a"}, nil); err == nil {
		t.Error("expected error for id/vector count mismatch")
	}
	if err := db.WriteEmbeddings(ctx, []string{"a", "b"}, [][]float64{{1}, {1, 2}}); err == nil {
		t.Error("expected error for ragged vectors")
	}
	if err := db.WriteEmbeddings(ctx, nil, nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestInsertRowsAcrossBatches(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	n := insertBatchSize*2 + 7
	ids := make([]string, n)
	vectors := make([][]float64, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("track-%05d", i)
		vectors[i] = []float64{float64(i)}
	}
	if err := db.WriteEmbeddings(ctx, ids, vectors); err != nil {
		t.Fatalf("WriteEmbeddings() error = %v", err)
	}
	gotIDs, _, err := db.ReadEmbeddings(ctx)
	if err != nil {
		t.Fatalf("ReadEmbeddings() error = %v", err)
	}
	if len(gotIDs) != n {
		t.Errorf("read %d rows, want %d", len(gotIDs), n)
	}
}
