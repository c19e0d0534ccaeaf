// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package features

import (
	"errors"
	"fmt"
)

// ErrEmptyFeatureTable is returned when fitting over a table with no rows.
var ErrEmptyFeatureTable = errors.New("feature table is empty")

// ErrDegenerateFeature is the sentinel wrapped by DegenerateFeatureError.
var ErrDegenerateFeature = errors.New("degenerate feature")

// ErrDimensionMismatch is the sentinel wrapped by DimensionMismatchError.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// DegenerateFeatureError reports a dimension with zero variance. Standardizing
// it would divide by zero.
type DegenerateFeatureError struct {
	Column string
	Index  int
}

func (e *DegenerateFeatureError) Error() string {
	return fmt.Sprintf("feature %q (dimension %d) has zero variance", e.Column, e.Index)
}

func (e *DegenerateFeatureError) Unwrap() error { return ErrDegenerateFeature }

// DimensionMismatchError reports a vector whose length differs from the
// fitted schema.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NonFiniteValueError reports a NaN or infinite input value.
type NonFiniteValueError struct {
	ID     string
	Column string
}

func (e *NonFiniteValueError) Error() string {
	return fmt.Sprintf("track %q has a non-finite value in %q", e.ID, e.Column)
}

// DuplicateIDError reports a track id that appears on more than one row.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("track %q appears more than once in the feature table", e.ID)
}
