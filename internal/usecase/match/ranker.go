package match

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/catalog"
	"github.com/somunicate/dbas/internal/domain/correlation"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/search/metric"
)

// Ranked is a catalog entry with its distance to the target profile.
type Ranked struct {
	Entry    *catalog.Entry
	Distance float64
}

// Rank orders catalog entries by ascending distance to targets over dims.
// Ties keep catalog insertion order. Entries with an undefined rating on any
// selected dimension are left out. model is only consulted for Mahalanobis
// and a nil model means that metric is unavailable.
func Rank(
	c *catalog.Catalog,
	dims []dimension.Dimension,
	targets []float64,
	m metric.Metric,
	model *correlation.Model,
) ([]Ranked, error) {
	if len(dims) == 0 {
		return nil, domain.ErrEmptyDimensionSet
	}
	if len(targets) != len(dims) {
		return nil, fmt.Errorf("%w: %d targets for %d dimensions", domain.ErrInvalidQuery, len(targets), len(dims))
	}

	idx, err := dimensionIndexes(c.DimensionSet(), dims)
	if err != nil {
		return nil, err
	}

	var distance func(values []float64) float64
	switch m {
	case metric.Euclidean:
		distance = func(values []float64) float64 { return floats.Distance(values, targets, 2) }
	case metric.Mahalanobis:
		if model == nil {
			return nil, domain.ErrSingularMatrix
		}
		distance = mahalanobis(model.SubMatrix(idx), targets)
	default:
		return nil, fmt.Errorf("%w: unsupported metric %q", domain.ErrInvalidQuery, m)
	}

	entries := c.Entries()
	ranked := make([]Ranked, 0, len(entries))
	values := make([]float64, len(idx))
	for i := range entries {
		e := &entries[i]
		if !selectRatings(e, idx, values) {
			continue
		}
		ranked = append(ranked, Ranked{Entry: e, Distance: distance(values)})
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int { return cmp.Compare(a.Distance, b.Distance) })
	return ranked, nil
}

func dimensionIndexes(set dimension.Set, dims []dimension.Dimension) ([]int, error) {
	idx := make([]int, len(dims))
	for i, d := range dims {
		pos, ok := set.Index(d)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDimension, d)
		}
		idx[i] = pos
	}
	return idx, nil
}

// selectRatings copies the ratings at idx into dst and reports whether all are defined.
func selectRatings(e *catalog.Entry, idx []int, dst []float64) bool {
	for k, i := range idx {
		v, ok := e.Rating(i)
		if !ok {
			return false
		}
		dst[k] = v
	}
	return true
}

// mahalanobis returns sqrt(diffᵀ·inv·diff) for diff = values - targets.
func mahalanobis(inv *mat.Dense, targets []float64) func([]float64) float64 {
	diff := mat.NewVecDense(len(targets), nil)
	return func(values []float64) float64 {
		for i, v := range values {
			diff.SetVec(i, v-targets[i])
		}
		d2 := mat.Inner(diff, inv, diff)
		// Rounding can push a zero quadratic form slightly negative.
		if d2 < 0 {
			d2 = 0
		}
		return math.Sqrt(d2)
	}
}
