// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

// Package features holds the numeric feature table read from storage and the
// per-dimension standardization fitted over it.
//
// A Table is a dense, row-major view: one row per track, one column per
// retained numeric audio attribute. Column order is part of the schema and is
// recorded on the fitted Params so that a persisted model can refuse a table
// whose attributes moved.
package features

import (
	"fmt"
	"math"
)

// Table is a read-only view of one feature vector per track.
type Table struct {
	// IDs holds the track identifier of each row.
	IDs []string

	// Columns names each dimension, in order.
	Columns []string

	// Rows holds one vector per id; every row has len(Columns) values.
	Rows [][]float64
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Dim returns the number of dimensions.
func (t *Table) Dim() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Validate checks the structural invariants of the table: matching lengths,
// unique ids, consistent row width and finite values.
func (t *Table) Validate() error {
	if t.Len() == 0 {
		return ErrEmptyFeatureTable
	}
	if len(t.IDs) != len(t.Rows) {
		return fmt.Errorf("feature table has %d ids for %d rows", len(t.IDs), len(t.Rows))
	}
	if t.Dim() == 0 {
		return fmt.Errorf("feature table has no columns")
	}

	seen := make(map[string]struct{}, len(t.IDs))
	for i, row := range t.Rows {
		id := t.IDs[i]
		if _, dup := seen[id]; dup {
			return &DuplicateIDError{ID: id}
		}
		seen[id] = struct{}{}

		if len(row) != t.Dim() {
			return &DimensionMismatchError{Expected: t.Dim(), Actual: len(row)}
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &NonFiniteValueError{ID: id, Column: t.Columns[j]}
			}
		}
	}
	return nil
}
