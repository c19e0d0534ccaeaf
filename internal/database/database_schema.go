// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
database_schema.go - Database Schema Management

Tables:
  - tracks: one row per track with its numeric audio attributes and album id
  - albums: distinct album names
  - artists: distinct artist names
  - tracks_artists: track to artist association (a track may credit several)
  - pr_comps: per-track embedding, written by the model store (see embeddings.go)

The four catalog tables are created empty at startup and replaced wholesale by
LoadDataset. pr_comps is only created when a model is saved, so its absence
means no model has been persisted.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// catalogTables lists the tables replaced by LoadDataset, in creation order.
var catalogTables = []string{"tracks", "albums", "artists", "tracks_artists"}

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}


// createTables creates the catalog tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// createIndexes creates the lookup indexes used by summaries and autocomplete
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

// tableCreationQueries returns the catalog table creation SQL statements.
// "key" and "mode" are quoted because they collide with SQL keywords.
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS tracks (
			track_id VARCHAR PRIMARY KEY,
			idx INTEGER NOT NULL,
			track_name VARCHAR NOT NULL,
			album_id INTEGER NOT NULL,
			popularity DOUBLE NOT NULL,
			duration_ms DOUBLE NOT NULL,
			explicit BOOLEAN NOT NULL,
			danceability DOUBLE NOT NULL,
			energy DOUBLE NOT NULL,
			"key" INTEGER NOT NULL,
			loudness DOUBLE NOT NULL,
			"mode" DOUBLE NOT NULL,
			speechiness DOUBLE NOT NULL,
			acousticness DOUBLE NOT NULL,
			instrumentalness DOUBLE NOT NULL,
			liveness DOUBLE NOT NULL,
			valence DOUBLE NOT NULL,
			tempo DOUBLE NOT NULL,
			time_signature INTEGER NOT NULL,
			track_genre VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS albums (
			album_id INTEGER PRIMARY KEY,
			album VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS artists (
			artist_id INTEGER PRIMARY KEY,
			artist VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tracks_artists (
			track_id VARCHAR NOT NULL,
			artist_id INTEGER NOT NULL,
			position INTEGER NOT NULL
		)`,
	}
}

func indexCreationQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_tracks_artists_track ON tracks_artists(track_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_idx ON tracks(idx)`,
	}
}
