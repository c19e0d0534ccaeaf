// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package features

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func sampleTable() *Table {
	return &Table{
		IDs:     []string{"a", "b", "c", "d"},
		Columns: []string{"energy", "tempo"},
		Rows: [][]float64{
			{0.1, 90},
			{0.4, 120},
			{0.7, 128},
			{1.0, 174},
		},
	}
}

func TestFit(t *testing.T) {
	t.Parallel()

	params, err := Fit(sampleTable())
	require.NoError(t, err)

	assert.Equal(t, []string{"energy", "tempo"}, params.Columns)
	assert.InDelta(t, 0.55, params.Mean[0], 1e-12)
	assert.InDelta(t, 128.0, params.Mean[1], 1e-12)

	// Population deviation: sqrt(sum((x-mean)^2)/N).
	assert.InDelta(t, math.Sqrt(0.1125), params.Std[0], 1e-12)
}

func TestTransformStandardizes(t *testing.T) {
	t.Parallel()

	table := sampleTable()
	params, err := Fit(table)
	require.NoError(t, err)

	rows, err := TransformAll(params, table.Rows)
	require.NoError(t, err)

	for j := range table.Columns {
		col := make([]float64, len(rows))
		for i := range rows {
			col[i] = rows[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		assert.InDelta(t, 0, mean, 1e-12, "column %d mean", j)
		assert.InDelta(t, 1, std, 1e-12, "column %d std", j)
	}
}

func TestFitErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		table  *Table
		target error
	}{
		{
			name:   "empty table",
			table:  &Table{Columns: []string{"energy"}},
			target: ErrEmptyFeatureTable,
		},
		{
			name: "zero variance",
			table: &Table{
				IDs:     []string{"a", "b"},
				Columns: []string{"energy", "mode"},
				Rows:    [][]float64{{0.1, 1}, {0.2, 1}},
			},
			target: ErrDegenerateFeature,
		},
		{
			name: "ragged row",
			table: &Table{
				IDs:     []string{"a", "b"},
				Columns: []string{"energy", "mode"},
				Rows:    [][]float64{{0.1, 1}, {0.2}},
			},
			target: ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Fit(tt.table)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestFitDegenerateReportsColumn(t *testing.T) {
	t.Parallel()

	_, err := Fit(&Table{
		IDs:     []string{"a", "b"},
		Columns: []string{"energy", "mode"},
		Rows:    [][]float64{{0.1, 1}, {0.2, 1}},
	})

	var degenerate *DegenerateFeatureError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, "mode", degenerate.Column)
	assert.Equal(t, 1, degenerate.Index)
}

func TestFitRejectsDuplicatesAndNonFinite(t *testing.T) {
	t.Parallel()

	_, err := Fit(&Table{
		IDs:     []string{"a", "a"},
		Columns: []string{"energy"},
		Rows:    [][]float64{{0.1}, {0.2}},
	})
	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)

	_, err = Fit(&Table{
		IDs:     []string{"a", "b"},
		Columns: []string{"energy"},
		Rows:    [][]float64{{math.NaN()}, {0.2}},
	})
	var nonFinite *NonFiniteValueError
	require.ErrorAs(t, err, &nonFinite)
	assert.Equal(t, "a", nonFinite.ID)
}

func TestTransformDimensionMismatch(t *testing.T) {
	t.Parallel()

	params, err := Fit(sampleTable())
	require.NoError(t, err)

	_, err = Transform(params, []float64{1, 2, 3})
	var mismatch *DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Actual)
}

func TestCompatibleWith(t *testing.T) {
	t.Parallel()

	params, err := Fit(sampleTable())
	require.NoError(t, err)

	assert.True(t, params.CompatibleWith([]string{"energy", "tempo"}))
	assert.False(t, params.CompatibleWith([]string{"tempo", "energy"}))
	assert.False(t, params.CompatibleWith([]string{"energy"}))
}
