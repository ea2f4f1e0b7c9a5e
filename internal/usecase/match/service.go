package match

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/search/metric"
	"github.com/somunicate/dbas/internal/domain/search/query"
	"github.com/somunicate/dbas/internal/domain/search/result"
	"github.com/somunicate/dbas/internal/domain/snapshot"
	"github.com/somunicate/dbas/internal/metrics"
)

// Service ranks catalog sounds against a target profile.
type Service struct {
	snapshots SnapshotProvider
	logger    *zap.Logger
}

// New creates a match service.
func New(snapshots SnapshotProvider, logger *zap.Logger) *Service {
	return &Service{snapshots: snapshots, logger: logger}
}

// Match ranks, filters and truncates the catalog for one query.
// A short result is not an error: the selection carries a PartialResultWarning.
func (s *Service) Match(ctx context.Context, q query.Query) (result.Selection, error) {
	start := time.Now()
	m := string(q.Metric())

	sel, err := s.match(ctx, q)

	metrics.MatchDuration.WithLabelValues(m).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MatchQueriesTotal.WithLabelValues(m, "error").Inc()
		return result.Selection{}, err
	}
	metrics.MatchQueriesTotal.WithLabelValues(m, "ok").Inc()

	if sel.Warning != nil {
		metrics.MatchPartialResultsTotal.WithLabelValues(m).Inc()
		s.logger.Debug("Partial match result",
			zap.String("metric", m),
			zap.Int("requested", sel.Warning.Requested),
			zap.Int("returned", sel.Warning.Returned),
		)
	}
	return sel, nil
}

func (s *Service) match(ctx context.Context, q query.Query) (result.Selection, error) {
	if err := ctx.Err(); err != nil {
		return result.Selection{}, fmt.Errorf("match: %w", err)
	}

	snap, err := s.snapshots.Current()
	if err != nil {
		return result.Selection{}, fmt.Errorf("current snapshot: %w", err)
	}
	if err := checkGroups(snap, q); err != nil {
		return result.Selection{}, err
	}
	if q.Metric() == metric.Mahalanobis && !snap.MahalanobisAvailable() {
		return result.Selection{}, fmt.Errorf("mahalanobis unavailable: %w", snap.MahalanobisErr())
	}

	ranked, err := Rank(snap.Catalog, q.Dimensions(), q.Targets(), q.Metric(), snap.Model)
	if err != nil {
		return result.Selection{}, fmt.Errorf("rank: %w", err)
	}

	filtered := Filter(ranked, q.Groups(), q.MinLiking(), q.MinFamiliarity())
	return SelectTopN(filtered, q.TopN()), nil
}

// checkGroups validates explicit group ids against the membership table, or
// against the groups present in the score table when no membership table is loaded.
func checkGroups(snap *snapshot.Snapshot, q query.Query) error {
	withDirectory := snap.Directory.Len() > 0
	for _, g := range q.Groups() {
		known := snap.Catalog.ScoredGroup(g)
		if withDirectory {
			_, known = snap.Directory.Get(g)
		}
		if !known {
			return fmt.Errorf("%w: %d", domain.ErrUnknownGroup, g)
		}
	}
	return nil
}

// Outcome is the result of one metric in a comparison.
type Outcome struct {
	Metric    metric.Metric
	Selection result.Selection
	Err       error
}

// Compare runs q once per metric through s.
func (s *Service) Compare(ctx context.Context, q query.Query, ms []metric.Metric) ([]Outcome, error) {
	return Compare(ctx, s, q, ms)
}

// Compare runs q once per metric through m. Each outcome carries its own
// error, so an unavailable metric does not hide the others. No metrics means all.
func Compare(ctx context.Context, m Matcher, q query.Query, ms []metric.Metric) ([]Outcome, error) {
	if len(ms) == 0 {
		ms = metric.All()
	}

	out := make([]Outcome, 0, len(ms))
	for _, mt := range ms {
		mq, err := q.WithMetric(mt)
		if err != nil {
			return nil, err
		}
		sel, err := m.Match(ctx, mq)
		out = append(out, Outcome{Metric: mt, Selection: sel, Err: err})
	}
	return out, nil
}
