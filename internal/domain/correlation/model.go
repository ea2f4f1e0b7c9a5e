// Package correlation derives the inverse covariance matrix used by the
// Mahalanobis metric from dimension correlations and rating spread.
package correlation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/catalog"
	"github.com/somunicate/dbas/internal/domain/dimension"
)

// MaxCondition bounds the condition number of Σ. Above it the inverse is
// numerically meaningless and Build reports ErrSingularMatrix.
const MaxCondition = 1e12

// symmetryTolerance is the largest accepted |R[i][j] - R[j][i]| in the source table.
const symmetryTolerance = 1e-6

// Rescale maps a correlation expressed on [0,1] to the conventional [-1,1] range.
func Rescale(c float64) float64 { return 2*c - 1 }

// StdDevs returns the sample standard deviation of every catalog dimension.
// Undefined ratings are excluded. Dimensions with fewer than two defined
// ratings yield NaN.
func StdDevs(c *catalog.Catalog) []float64 {
	n := len(c.Dimensions())
	out := make([]float64, n)
	for i := range n {
		col := c.Column(i)
		if len(col) < 2 {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.StdDev(col, nil)
	}
	return out
}

// ParseTable reads a dimension x dimension correlation table on the [0,1]
// scale and returns the rescaled correlation matrix aligned to dims.
// The first column holds row labels. Columns and rows are matched by name when
// the table names every dimension and by position otherwise.
func ParseTable(t catalog.Table, dims []dimension.Dimension) (*mat.SymDense, error) {
	n := len(dims)
	if n == 0 {
		return nil, domain.NewDataFormatError(t.Source, "", "no dimensions")
	}

	cols, err := columnOrder(t, dims)
	if err != nil {
		return nil, err
	}
	rows, err := rowOrder(t, dims)
	if err != nil {
		return nil, err
	}

	raw := mat.NewDense(n, n, nil)
	for i, row := range rows {
		for j, col := range cols {
			cell := strings.TrimSpace(t.Cell(row, col))
			v, perr := strconv.ParseFloat(cell, 64)
			if perr != nil || math.IsNaN(v) || v < 0 || v > 1 {
				return nil, domain.NewDataFormatError(t.Source, string(dims[j]),
					fmt.Sprintf("row %q: correlation %q not a number in [0,1]", dims[i], cell))
			}
			raw.Set(i, j, Rescale(v))
		}
	}

	r := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			if math.Abs(raw.At(i, j)-raw.At(j, i)) > symmetryTolerance {
				return nil, domain.NewDataFormatError(t.Source, string(dims[j]),
					fmt.Sprintf("correlation with %q is not symmetric", dims[i]))
			}
			r.SetSym(i, j, raw.At(i, j))
		}
	}
	return r, nil
}

func columnOrder(t catalog.Table, dims []dimension.Dimension) ([]int, error) {
	out := make([]int, len(dims))
	named := 0
	for i, d := range dims {
		if idx, ok := t.ColumnIndex(string(d)); ok {
			out[i] = idx
			named++
		}
	}
	switch {
	case named == len(dims):
		return out, nil
	case named > 0:
		return nil, domain.NewDataFormatError(t.Source, "", "correlation header names only some dimensions")
	case len(t.Header) < len(dims)+1:
		return nil, domain.NewDataFormatError(t.Source, "",
			fmt.Sprintf("expected %d correlation columns, got %d", len(dims), len(t.Header)-1))
	}
	for i := range dims {
		out[i] = i + 1
	}
	return out, nil
}

func rowOrder(t catalog.Table, dims []dimension.Dimension) ([]int, error) {
	labels := make(map[string]int, len(t.Rows))
	for row := range t.Rows {
		labels[strings.TrimSpace(t.Cell(row, 0))] = row
	}

	out := make([]int, len(dims))
	named := 0
	for i, d := range dims {
		if row, ok := labels[string(d)]; ok {
			out[i] = row
			named++
		}
	}
	switch {
	case named == len(dims):
		return out, nil
	case named > 0:
		return nil, domain.NewDataFormatError(t.Source, "", "correlation row labels name only some dimensions")
	case len(t.Rows) < len(dims):
		return nil, domain.NewDataFormatError(t.Source, "",
			fmt.Sprintf("expected %d correlation rows, got %d", len(dims), len(t.Rows)))
	}
	for i := range dims {
		out[i] = i
	}
	return out, nil
}

// Model is the cached inverse covariance over all catalog dimensions.
type Model struct {
	dims dimension.Set
	inv  *mat.SymDense
}

// Build computes Σ = D·R·D with D = diag(stdDevs) and inverts it once.
// It fails with ErrSingularMatrix when Σ is not positive definite or its
// condition number exceeds MaxCondition.
func Build(dims dimension.Set, r mat.Symmetric, stdDevs []float64) (*Model, error) {
	n := dims.Len()
	if r.SymmetricDim() != n || len(stdDevs) != n {
		return nil, fmt.Errorf("correlation model: %d dimensions, %dx%d correlations, %d deviations",
			n, r.SymmetricDim(), r.SymmetricDim(), len(stdDevs))
	}

	names := dims.All()
	for i, s := range stdDevs {
		if math.IsNaN(s) || s <= 0 {
			return nil, fmt.Errorf("%w: dimension %q has no variance", domain.ErrSingularMatrix, names[i])
		}
	}

	sigma := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			sigma.SetSym(i, j, stdDevs[i]*r.At(i, j)*stdDevs[j])
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sigma); !ok {
		return nil, fmt.Errorf("%w: covariance is not positive definite", domain.ErrSingularMatrix)
	}
	if cond := chol.Cond(); cond > MaxCondition {
		return nil, fmt.Errorf("%w: condition number %.3g", domain.ErrSingularMatrix, cond)
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSingularMatrix, err)
	}
	return &Model{dims: dims, inv: &inv}, nil
}

// FromCatalog parses the correlation table against the catalog dimensions and
// builds the model. A malformed table yields ErrDataFormat; a degenerate
// covariance yields ErrSingularMatrix.
func FromCatalog(c *catalog.Catalog, corr catalog.Table) (*Model, error) {
	r, err := ParseTable(corr, c.Dimensions())
	if err != nil {
		return nil, err
	}
	return Build(c.DimensionSet(), r, StdDevs(c))
}

// Inverse returns the full inverse covariance matrix.
func (m *Model) Inverse() mat.Symmetric { return m.inv }

// Dimensions returns the dimension order of the matrix.
func (m *Model) Dimensions() dimension.Set { return m.dims }

// SubMatrix selects rows and columns idx from the cached inverse.
func (m *Model) SubMatrix(idx []int) *mat.Dense { return SubMatrix(m.inv, idx) }

// SubMatrix selects rows and columns idx, in that order, from inv.
// This is index selection from the already-inverted full matrix, not the
// inverse of the corresponding covariance sub-block.
func SubMatrix(inv mat.Matrix, idx []int) *mat.Dense {
	k := len(idx)
	sub := mat.NewDense(k, k, nil)
	for i, r := range idx {
		for j, c := range idx {
			sub.Set(i, j, inv.At(r, c))
		}
	}
	return sub
}
