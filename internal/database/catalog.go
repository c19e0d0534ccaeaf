// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tracksim/internal/logging"
	"github.com/tomtom215/tracksim/internal/models"
)

// DefaultAutocompleteLimit caps autocomplete suggestions when no limit is given.
const DefaultAutocompleteLimit = 10

// TrackSummaries returns tracks with their artists joined by ", ", filtered by
// filters and ordered by track index. Filter columns may be qualified with t
// (tracks) or a (artists). A limit of 0 or less returns every match.
func (db *DB) TrackSummaries(ctx context.Context, filters []Filter, limit int) (out []models.TrackSummary, err error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("summaries", "tracks", start, err) }(time.Now())

	query := `
		SELECT t.track_id, t.track_name,
			string_agg(a.artist, ', ' ORDER BY ta.position) AS artists
		FROM tracks t
		JOIN tracks_artists ta ON ta.track_id = t.track_id
		JOIN artists a ON a.artist_id = ta.artist_id
		` + where + `
		GROUP BY t.track_id, t.track_name, t.idx
		ORDER BY t.idx`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query track summaries: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var id, name, artists string
		if err := rows.Scan(&id, &name, &artists); err != nil {
			return nil, fmt.Errorf("scan track summary: %w", err)
		}
		out = append(out, models.NewTrackSummary(id, name, artists))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate track summaries: %w", err)
	}
	return out, nil
}

// SummariesByID returns summaries for the given track ids keyed by id.
// Unknown ids are absent from the map.
func (db *DB) SummariesByID(ctx context.Context, ids []string) (map[string]models.TrackSummary, error) {
	if len(ids) == 0 {
		return map[string]models.TrackSummary{}, nil
	}
	list, err := db.TrackSummaries(ctx, []Filter{In("t.track_id", ids...)}, 0)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.TrackSummary, len(list))
	for _, s := range list {
		byID[s.TrackID] = s
	}
	return byID, nil
}

// Autocomplete returns tracks whose name contains q, case-insensitively.
func (db *DB) Autocomplete(ctx context.Context, q string, limit int) ([]models.TrackSummary, error) {
	if limit <= 0 {
		limit = DefaultAutocompleteLimit
	}
	return db.TrackSummaries(ctx, []Filter{Like("t.track_name", q)}, limit)
}

// CatalogEmpty reports whether the tracks table has no rows.
func (db *DB) CatalogEmpty(ctx context.Context) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracks").Scan(&n); err != nil {
		return false, fmt.Errorf("count tracks: %w", err)
	}
	return n == 0, nil
}

// LoadDataset replaces the four catalog tables with ds in one transaction.
// Readers see either the old catalog or the new one.
func (db *DB) LoadDataset(ctx context.Context, ds *models.Dataset) (err error) {
	defer func(start time.Time) { observe("load_dataset", "tracks", start, err) }(time.Now())

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	for i := len(catalogTables) - 1; i >= 0; i-- {
		if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+catalogTables[i]); err != nil {
			return fmt.Errorf("drop %s: %w", catalogTables[i], err)
		}
	}
	for _, q := range tableCreationQueries() {
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("recreate catalog table: %w", err)
		}
	}

	err = insertRows(ctx, tx, "albums", []string{"album_id", "album"}, len(ds.Albums), func(i int) []any {
		a := ds.Albums[i]
		return []any{a.AlbumID, a.Album}
	})
	if err != nil {
		return err
	}

	err = insertRows(ctx, tx, "artists", []string{"artist_id", "artist"}, len(ds.Artists), func(i int) []any {
		a := ds.Artists[i]
		return []any{a.ArtistID, a.Artist}
	})
	if err != nil {
		return err
	}

	err = insertRows(ctx, tx, "tracks_artists", []string{"track_id", "artist_id", "position"}, len(ds.TrackArtists), func(i int) []any {
		ta := ds.TrackArtists[i]
		return []any{ta.TrackID, ta.ArtistID, ta.Position}
	})
	if err != nil {
		return err
	}

	trackCols := []string{
		"track_id", "idx", "track_name", "album_id", "popularity", "duration_ms", "explicit",
		"danceability", "energy", "key", "loudness", "mode", "speechiness", "acousticness",
		"instrumentalness", "liveness", "valence", "tempo", "time_signature", "track_genre",
	}
	err = insertRows(ctx, tx, "tracks", trackCols, len(ds.Tracks), func(i int) []any {
		t := &ds.Tracks[i]
		return []any{
			t.TrackID, t.Idx, t.TrackName, t.AlbumID, t.Popularity, t.DurationMS, t.Explicit,
			t.Danceability, t.Energy, t.Key, t.Loudness, t.Mode, t.Speechiness, t.Acousticness,
			t.Instrumentalness, t.Liveness, t.Valence, t.Tempo, t.TimeSignature, t.TrackGenre,
		}
	})
	if err != nil {
		return err
	}

	for _, q := range indexCreationQueries() {
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("recreate catalog index: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	if cpErr := db.Checkpoint(ctx); cpErr != nil {
		logging.Warn().Err(cpErr).Msg("Failed to checkpoint after dataset load")
	}
	return nil
}
