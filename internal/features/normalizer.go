// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package features

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Params holds the fitted per-dimension statistics.
//
// Std is the population standard deviation (normalized by N), so transforming
// the fitting table yields columns with zero mean and unit variance.
type Params struct {
	Columns []string
	Mean    []float64
	Std     []float64
}

// Dim returns the number of dimensions the params were fitted on.
func (p *Params) Dim() int {
	return len(p.Mean)
}

// Fit computes the mean and standard deviation of every column of the table.
// A zero-variance column fails with *DegenerateFeatureError.
func Fit(table *Table) (*Params, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	dim := table.Dim()
	params := &Params{
		Columns: slices.Clone(table.Columns),
		Mean:    make([]float64, dim),
		Std:     make([]float64, dim),
	}

	col := make([]float64, table.Len())
	for j := 0; j < dim; j++ {
		for i, row := range table.Rows {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			return nil, &DegenerateFeatureError{Column: table.Columns[j], Index: j}
		}
		params.Mean[j] = mean
		params.Std[j] = std
	}

	return params, nil
}

// Transform standardizes a single vector.
func Transform(p *Params, vector []float64) ([]float64, error) {
	if len(vector) != p.Dim() {
		return nil, &DimensionMismatchError{Expected: p.Dim(), Actual: len(vector)}
	}

	out := make([]float64, len(vector))
	for j, x := range vector {
		out[j] = (x - p.Mean[j]) / p.Std[j]
	}
	return out, nil
}

// TransformAll standardizes every row, failing on the first mismatch.
func TransformAll(p *Params, rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		v, err := Transform(p, row)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// CompatibleWith reports whether the params were fitted on exactly these
// columns, in this order.
func (p *Params) CompatibleWith(columns []string) bool {
	return slices.Equal(p.Columns, columns)
}
