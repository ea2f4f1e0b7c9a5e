package dbas

import (
	"context"

	"github.com/somunicate/dbas/internal/domain/search/metric"
	"github.com/somunicate/dbas/internal/domain/search/query"
	"github.com/somunicate/dbas/internal/domain/search/result"
	"github.com/somunicate/dbas/internal/domain/snapshot"
	healthuc "github.com/somunicate/dbas/internal/usecase/health"
	matchuc "github.com/somunicate/dbas/internal/usecase/match"
)

// --- matchUseCase mock ---

type mockMatchUC struct {
	matchFn   func(ctx context.Context, q query.Query) (result.Selection, error)
	compareFn func(ctx context.Context, q query.Query, ms []metric.Metric) ([]matchuc.Outcome, error)
}

func (m *mockMatchUC) Match(ctx context.Context, q query.Query) (result.Selection, error) {
	return m.matchFn(ctx, q)
}

func (m *mockMatchUC) Compare(ctx context.Context, q query.Query, ms []metric.Metric) ([]matchuc.Outcome, error) {
	return m.compareFn(ctx, q, ms)
}

// --- referenceUseCase mock ---

type mockReferenceUC struct {
	currentFn func() (*snapshot.Snapshot, error)
	reloadFn  func(ctx context.Context) (*snapshot.Snapshot, error)
}

func (m *mockReferenceUC) Current() (*snapshot.Snapshot, error) {
	return m.currentFn()
}

func (m *mockReferenceUC) Reload(ctx context.Context) (*snapshot.Snapshot, error) {
	return m.reloadFn(ctx)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}
