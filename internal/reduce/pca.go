// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

// Package reduce projects standardized feature vectors onto their leading
// principal components.
//
// Components come from an eigen-decomposition of the covariance matrix of the
// fitted rows, ordered by descending eigenvalue. Each component's sign is fixed
// so that its largest-magnitude coordinate is positive; eigenvectors are only
// defined up to sign and this makes a refit over identical data reproduce the
// same embedding.
package reduce

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultDimensions is the number of components retained when not configured.
const DefaultDimensions = 6

var (
	// ErrTooFewRows is returned when fitting fewer than two rows.
	ErrTooFewRows = errors.New("principal components need at least two rows")

	// ErrFactorization is returned when the eigen-decomposition fails.
	ErrFactorization = errors.New("eigen-decomposition of covariance matrix failed")

	// ErrInvalidDimensions is the sentinel wrapped by InvalidDimensionsError.
	ErrInvalidDimensions = errors.New("invalid number of dimensions")
)

// InvalidDimensionsError reports a component count outside 1..InputDim.
type InvalidDimensionsError struct {
	Requested int
	InputDim  int
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("dimensions must be between 1 and %d, got %d", e.InputDim, e.Requested)
}

func (e *InvalidDimensionsError) Unwrap() error { return ErrInvalidDimensions }

// ValidateDimensions checks 1 <= kDims <= inputDim.
func ValidateDimensions(kDims, inputDim int) error {
	if kDims < 1 || kDims > inputDim {
		return &InvalidDimensionsError{Requested: kDims, InputDim: inputDim}
	}
	return nil
}

// Projection is a fitted principal-component model. It is never mutated after
// Fit returns.
type Projection struct {
	// Mean is the column mean of the fitted rows, subtracted before projecting.
	Mean []float64

	// Components holds the retained directions, one per row, each InputDim long.
	Components [][]float64

	// Variances holds the eigenvalue of every component, retained or not, in
	// descending order.
	Variances []float64
}

// InputDim returns the length of vectors accepted by Transform.
func (p *Projection) InputDim() int {
	return len(p.Mean)
}

// Dimensions returns the embedding length produced by Transform.
func (p *Projection) Dimensions() int {
	return len(p.Components)
}

// ExplainedVarianceRatio returns the share of total variance captured by each
// retained component.
func (p *Projection) ExplainedVarianceRatio() []float64 {
	total := floats.Sum(p.Variances)
	out := make([]float64, p.Dimensions())
	if total == 0 {
		return out
	}
	for i := range out {
		out[i] = p.Variances[i] / total
	}
	return out
}

// Fit computes the principal components of rows and retains the first kDims.
func Fit(rows [][]float64, kDims int) (*Projection, error) {
	n := len(rows)
	if n < 2 {
		return nil, ErrTooFewRows
	}
	dim := len(rows[0])
	if err := ValidateDimensions(kDims, dim); err != nil {
		return nil, err
	}

	data := make([]float64, 0, n*dim)
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), dim)
		}
		data = append(data, row...)
	}
	x := mat.NewDense(n, dim, data)

	mean := make([]float64, dim)
	for j := 0; j < dim; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		return nil, ErrFactorization
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Values are ascending; order indices by descending eigenvalue. The stable
	// sort keeps the solver's order for exact ties.
	order := make([]int, dim)
	for i := range order {
		order[i] = dim - 1 - i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})

	p := &Projection{
		Mean:       mean,
		Components: make([][]float64, kDims),
		Variances:  make([]float64, dim),
	}
	for rank, col := range order {
		// Tiny negative eigenvalues are rounding noise on a PSD matrix.
		p.Variances[rank] = math.Max(values[col], 0)
		if rank < kDims {
			p.Components[rank] = orient(mat.Col(nil, col, &vectors))
		}
	}

	return p, nil
}

// orient flips v so that its largest-magnitude coordinate is positive.
func orient(v []float64) []float64 {
	pivot := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[pivot]) {
			pivot = i
		}
	}
	if v[pivot] < 0 {
		floats.Scale(-1, v)
	}
	return v
}

// Transform projects a standardized vector to its embedding.
func Transform(p *Projection, vector []float64) ([]float64, error) {
	if len(vector) != p.InputDim() {
		return nil, fmt.Errorf("vector has %d values, projection expects %d", len(vector), p.InputDim())
	}

	centered := make([]float64, len(vector))
	floats.SubTo(centered, vector, p.Mean)

	out := make([]float64, p.Dimensions())
	for i, component := range p.Components {
		out[i] = floats.Dot(component, centered)
	}
	return out, nil
}

// TransformAll projects every row.
func TransformAll(p *Projection, rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		v, err := Transform(p, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
