// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/tracksim/internal/features"
)

// FeatureColumns is the allowlist of numeric audio attributes that may feed
// the model.
var FeatureColumns = map[string]bool{
	"popularity":       true,
	"duration_ms":      true,
	"danceability":     true,
	"energy":           true,
	"loudness":         true,
	"mode":             true,
	"speechiness":      true,
	"acousticness":     true,
	"instrumentalness": true,
	"liveness":         true,
	"valence":          true,
	"tempo":            true,
}

// nonFeatureColumns are numeric columns of the tracks table that are ids or
// categorical codes. Distances over them are meaningless.
var nonFeatureColumns = map[string]string{
	"idx":            "row identifier",
	"album_id":       "album identifier",
	"key":            "categorical pitch class",
	"time_signature": "categorical meter",
	"explicit":       "boolean flag",
}

// checkFeatureColumns validates requested columns against the allowlist.
func checkFeatureColumns(columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: no feature columns requested", ErrInvalidColumn)
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if reason, ok := nonFeatureColumns[c]; ok {
			return &ColumnError{Column: c, Reason: "not a feature (" + reason + ")"}
		}
		if !FeatureColumns[c] {
			return &ColumnError{Column: c, Reason: "not a numeric audio attribute"}
		}
		if seen[c] {
			return &ColumnError{Column: c, Reason: "requested twice"}
		}
		seen[c] = true
	}
	return nil
}

// ReadFeatureTable reads one row per track with the requested attribute
// columns, in track index order.
func (db *DB) ReadFeatureTable(ctx context.Context, columns []string) (table *features.Table, err error) {
	if err := checkFeatureColumns(columns); err != nil {
		return nil, err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("read_features", "tracks", start, err) }(time.Now())

	selects := make([]string, len(columns))
	for i, c := range columns {
		selects[i] = fmt.Sprintf(`CAST("%s" AS DOUBLE)`, c)
	}
	// Column names are allowlisted above.
	query := fmt.Sprintf(`SELECT track_id, %s FROM tracks ORDER BY idx`, strings.Join(selects, ", "))

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query feature table: %w", err)
	}
	defer closeWithLog(rows, "rows")

	table = &features.Table{Columns: append([]string(nil), columns...)}
	values := make([]sql.NullFloat64, len(columns))
	dest := make([]any, len(columns)+1)
	var id string
	dest[0] = &id
	for i := range values {
		dest[i+1] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		row := make([]float64, len(columns))
		for i, v := range values {
			if !v.Valid {
				return nil, fmt.Errorf("track %s has NULL %s", id, columns[i])
			}
			row[i] = v.Float64
		}
		table.IDs = append(table.IDs, id)
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}

	return table, nil
}
