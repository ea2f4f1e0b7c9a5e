package query

import (
	"fmt"
	"math"
	"slices"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/demographic"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/search/metric"
)

// Query parameter limits.
const (
	MinTopN     = 1
	MaxTopN     = 10
	DefaultTopN = 5
	// Target ratings share the [-1, 1] scale of the catalog.
	MinTarget = -1.0
	MaxTarget = 1.0
	// Thresholds are on the percent scale.
	MaxThreshold = 100.0
)

// Query is a validated match request. It is built per request and never stored.
type Query struct {
	dimensions     []dimension.Dimension
	targets        []float64
	metric         metric.Metric
	groups         []demographic.GroupID
	minLiking      float64
	minFamiliarity float64
	topN           int
}

// New validates and normalizes match parameters.
// An empty metric defaults to Euclidean. Groups are deduplicated and sorted.
func New(
	dims []dimension.Dimension,
	targets []float64,
	m metric.Metric,
	groups []demographic.GroupID,
	minLiking, minFamiliarity float64,
	topN int,
) (Query, error) {
	if len(dims) == 0 {
		return Query{}, domain.ErrEmptyDimensionSet
	}
	if len(targets) != len(dims) {
		return Query{}, fmt.Errorf("%w: %d targets for %d dimensions", domain.ErrInvalidQuery, len(targets), len(dims))
	}
	if _, err := dimension.NewSet(dims); err != nil {
		return Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	for i, v := range targets {
		if math.IsNaN(v) || v < MinTarget || v > MaxTarget {
			return Query{}, fmt.Errorf("%w: target for %q must be between %g and %g",
				domain.ErrInvalidQuery, dims[i], MinTarget, MaxTarget)
		}
	}
	if m == "" {
		m = metric.Euclidean
	}
	if !m.IsValid() {
		return Query{}, fmt.Errorf("%w: unsupported metric %q", domain.ErrInvalidQuery, m)
	}
	if err := checkThreshold("min_liking", minLiking); err != nil {
		return Query{}, err
	}
	if err := checkThreshold("min_familiarity", minFamiliarity); err != nil {
		return Query{}, err
	}
	if topN < MinTopN || topN > MaxTopN {
		return Query{}, fmt.Errorf("%w: top_n must be between %d and %d", domain.ErrInvalidQuery, MinTopN, MaxTopN)
	}

	g := slices.Clone(groups)
	slices.Sort(g)
	g = slices.Compact(g)

	return Query{
		dimensions:     slices.Clone(dims),
		targets:        slices.Clone(targets),
		metric:         m,
		groups:         g,
		minLiking:      minLiking,
		minFamiliarity: minFamiliarity,
		topN:           topN,
	}, nil
}

func checkThreshold(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > MaxThreshold {
		return fmt.Errorf("%w: %s must be between 0 and %g", domain.ErrInvalidQuery, name, MaxThreshold)
	}
	return nil
}

// WithMetric returns a copy of the query using another metric.
func (q Query) WithMetric(m metric.Metric) (Query, error) {
	if !m.IsValid() {
		return Query{}, fmt.Errorf("%w: unsupported metric %q", domain.ErrInvalidQuery, m)
	}
	q.metric = m
	return q, nil
}

// Dimensions returns the selected dimensions in request order.
func (q *Query) Dimensions() []dimension.Dimension { return q.dimensions }

// Targets returns the target ratings, parallel to Dimensions.
func (q *Query) Targets() []float64 { return q.targets }

// Metric returns the distance metric.
func (q *Query) Metric() metric.Metric { return q.metric }

// Groups returns the selected demographic groups. Empty means no restriction.
func (q *Query) Groups() []demographic.GroupID { return q.groups }

// MinLiking returns the liking threshold in percent.
func (q *Query) MinLiking() float64 { return q.minLiking }

// MinFamiliarity returns the familiarity threshold in percent.
func (q *Query) MinFamiliarity() float64 { return q.minFamiliarity }

// TopN returns the maximum number of results.
func (q *Query) TopN() int { return q.topN }
