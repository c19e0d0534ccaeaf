// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package database provides the DuckDB storage layer for Tracksim.

It owns the track catalog (tracks, albums, artists, tracks_artists) and the
structured half of a persisted model, the pr_comps embedding table.

# Catalog

LoadDataset replaces the catalog tables in a single transaction. Reads go
through TrackSummaries, which joins each track to its artists and aggregates
their names with ", " in credit order. Autocomplete is a case-insensitive
substring search over track names built on the same query.

# Features and Embeddings

ReadFeatureTable returns a features.Table for an allowlisted set of numeric
audio attributes. Identifier and categorical columns (idx, album_id, key,
time_signature, explicit) are rejected with a *ColumnError.

WriteEmbeddings and ReadEmbeddings implement the embedding half of the
recommend.EmbeddingStore contract:

	track_id VARCHAR PRIMARY KEY, PC1 DOUBLE, ..., PCk DOUBLE

# Filters

Filters form a closed set built with Eq, In, Like and IsNull. Column names
must be plain (optionally table-qualified) identifiers and values are always
bound parameters:

	db.TrackSummaries(ctx, []database.Filter{
	    database.In("t.track_id", ids...),
	}, 0)

# Thread Safety

DB is safe for concurrent use. Every query applies a 30 second timeout when
the caller's context has no deadline.
*/
package database
