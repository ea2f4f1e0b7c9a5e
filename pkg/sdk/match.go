package dbas

import (
	"context"
	"fmt"
	"time"

	"github.com/somunicate/dbas/internal/domain/demographic"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/search/metric"
	"github.com/somunicate/dbas/internal/domain/search/query"
	"github.com/somunicate/dbas/internal/domain/search/result"
	matchuc "github.com/somunicate/dbas/internal/usecase/match"
)

// Match ranks the catalog against the query targets and returns the best sounds.
func (e *Engine) Match(ctx context.Context, q Query) (_ Selection, err error) {
	start := time.Now()
	defer func() { e.obs.observe("match", start, err) }()

	iq, err := e.toInternalQuery(q)
	if err != nil {
		return Selection{}, fmt.Errorf("match: %w", err)
	}
	sel, err := e.matchSvc.Match(ctx, iq)
	if err != nil {
		return Selection{}, fmt.Errorf("match: %w", err)
	}
	out := fromInternalSelection(sel)
	e.obs.observePartial("match", out.Partial)
	return out, nil
}

// Compare runs the query once per metric. Without metrics every supported
// metric is used. A failing metric is reported in its Outcome and does not
// fail the comparison.
func (e *Engine) Compare(ctx context.Context, q Query, metrics ...Metric) (_ []Outcome, err error) {
	start := time.Now()
	defer func() { e.obs.observe("compare", start, err) }()

	iq, err := e.toInternalQuery(q)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	ms := make([]metric.Metric, 0, len(metrics))
	for _, m := range metrics {
		ms = append(ms, metric.Metric(m))
	}

	outcomes, err := e.matchSvc.Compare(ctx, iq, ms)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	out := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		sel := fromInternalSelection(o.Selection)
		e.obs.observePartial("compare", sel.Partial)
		out = append(out, Outcome{Metric: Metric(o.Metric), Selection: sel, Err: o.Err})
	}
	return out, nil
}

func (e *Engine) toInternalQuery(q Query) (query.Query, error) {
	snap, err := e.refSvc.Current()
	if err != nil {
		return query.Query{}, err //nolint:wrapcheck // wrapped by caller
	}

	dims := make([]dimension.Dimension, 0, len(q.Targets))
	targets := make([]float64, 0, len(q.Targets))
	for _, t := range q.Targets {
		dims = append(dims, dimension.Dimension(t.Dimension))
		targets = append(targets, t.Value)
	}

	ids := make([]demographic.GroupID, 0, len(q.Groups))
	for _, g := range q.Groups {
		ids = append(ids, demographic.GroupID(g))
	}
	groups, err := matchuc.ResolveGroups(snap.Directory, ids, demographic.Criteria{
		Genders:    q.Demographics.Genders,
		Migrations: q.Demographics.Migrations,
		Ages:       q.Demographics.Ages,
	})
	if err != nil {
		return query.Query{}, err //nolint:wrapcheck // wrapped by caller
	}

	topN := q.TopN
	if topN == 0 {
		topN = e.defaultTopN
	}
	return query.New(dims, targets, metric.Metric(q.Metric), groups, q.MinLiking, q.MinFamiliarity, topN) //nolint:wrapcheck // wrapped by caller
}

func fromInternalSelection(sel result.Selection) Selection {
	out := Selection{Results: make([]Result, 0, len(sel.Results))}
	for _, r := range sel.Results {
		item := Result{Sound: r.Sound(), Distance: r.Distance(), HasScores: r.HasScores()}
		if r.HasScores() {
			item.Liking = r.Liking()
			item.Familiarity = r.Familiarity()
		}
		out.Results = append(out.Results, item)
	}
	if sel.Warning != nil {
		out.Partial = &Partial{Requested: sel.Warning.Requested, Returned: sel.Warning.Returned}
	}
	return out
}
