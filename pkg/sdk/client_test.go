package dbas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/somunicate/dbas/internal/domain/search/query"
	"github.com/somunicate/dbas/internal/domain/search/result"
	"github.com/somunicate/dbas/internal/domain/snapshot"
	healthuc "github.com/somunicate/dbas/internal/usecase/health"
)

func TestNew_RequiresReferenceData(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error without reference data")
	}
	if !strings.Contains(err.Error(), "reference data required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_FilesAndTablesExclusive(t *testing.T) {
	_, err := New(context.Background(), WithFiles(Files{}), WithTables(Tables{}))
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected mutual exclusion error, got %v", err)
	}
}

func TestNew_InvalidDefaultTopN(t *testing.T) {
	_, err := New(context.Background(), WithTables(testTables("0.5")), WithDefaultTopN(11))
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestOptions(t *testing.T) {
	cfg := &engineConfig{}
	WithValkey("localhost:6379", "secret").apply(cfg)
	if len(cfg.cacheAddrs) != 1 || cfg.cacheAddrs[0] != "localhost:6379" || cfg.cachePassword != "secret" {
		t.Errorf("cache = %v/%q", cfg.cacheAddrs, cfg.cachePassword)
	}

	cfg2 := &engineConfig{}
	WithRedis("redis:6379", "").apply(cfg2)
	if len(cfg2.cacheAddrs) != 1 || cfg2.cacheAddrs[0] != "redis:6379" {
		t.Errorf("cacheAddrs = %v", cfg2.cacheAddrs)
	}

	cfg3 := &engineConfig{}
	WithCacheTTL(time.Minute).apply(cfg3)
	WithCachePrefix("test:").apply(cfg3)
	WithDefaultTopN(3).apply(cfg3)
	WithDimensionRange(2, 5).apply(cfg3)
	WithIDColumn("file").apply(cfg3)
	if cfg3.cacheTTL != time.Minute || cfg3.cachePrefix != "test:" || cfg3.defaultTopN != 3 {
		t.Errorf("unexpected config %+v", cfg3)
	}
	if cfg3.dimensionFrom != 2 || cfg3.dimensionTo != 5 || cfg3.idColumn != "file" {
		t.Errorf("unexpected schema config %+v", cfg3)
	}

	cfg4 := &engineConfig{}
	logger := slog.Default()
	WithLogger(logger).apply(cfg4)
	if cfg4.logger != logger {
		t.Error("expected logger to be set")
	}

	cfg5 := &engineConfig{}
	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg5)
	if cfg5.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestEngine_Close_NilStore(t *testing.T) {
	e := &Engine{store: nil}
	e.Close()
}

func TestEngine_Match_NotLoaded(t *testing.T) {
	e := &Engine{
		refSvc: &mockReferenceUC{
			currentFn: func() (*snapshot.Snapshot, error) { return nil, ErrCatalogNotLoaded },
		},
		defaultTopN: query.DefaultTopN,
	}
	_, err := e.Match(context.Background(), Query{Targets: []Target{{Dimension: "positivity"}}})
	if !errors.Is(err, ErrCatalogNotLoaded) {
		t.Fatalf("expected ErrCatalogNotLoaded, got %v", err)
	}
}

func TestEngine_Match_PassesQuery(t *testing.T) {
	snap := mustSnapshot(t, "0.5")
	e := &Engine{
		refSvc: &mockReferenceUC{
			currentFn: func() (*snapshot.Snapshot, error) { return snap, nil },
		},
		matchSvc: &mockMatchUC{
			matchFn: func(_ context.Context, q query.Query) (result.Selection, error) {
				if q.TopN() != 7 {
					t.Errorf("TopN = %d, want engine default 7", q.TopN())
				}
				if q.Metric() != "mahalanobis" {
					t.Errorf("Metric = %q", q.Metric())
				}
				if g := q.Groups(); len(g) != 1 || g[0] != 1 {
					t.Errorf("Groups = %v, want [1]", g)
				}
				return result.Selection{Results: []result.Result{result.New("s1", 0.25).WithScores(80, 60)}}, nil
			},
		},
		defaultTopN: 7,
	}

	sel, err := e.Match(context.Background(), Query{
		Targets:      []Target{{Dimension: "positivity", Value: 0.5}},
		Metric:       Mahalanobis,
		Demographics: Demographics{Genders: []string{"Female"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sel.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(sel.Results))
	}
	r := sel.Results[0]
	if r.Sound != "s1" || r.Distance != 0.25 || !r.HasScores || r.Liking != 80 || r.Familiarity != 60 {
		t.Errorf("unexpected result %+v", r)
	}
	if sel.Partial != nil {
		t.Errorf("unexpected partial %+v", sel.Partial)
	}
}

func TestEngine_Reload_Error(t *testing.T) {
	e := &Engine{
		refSvc: &mockReferenceUC{
			reloadFn: func(_ context.Context) (*snapshot.Snapshot, error) { return nil, ErrDataFormat },
		},
	}
	if _, err := e.Reload(context.Background()); !errors.Is(err, ErrDataFormat) {
		t.Fatalf("expected ErrDataFormat, got %v", err)
	}
}

func TestEngine_Health(t *testing.T) {
	e := &Engine{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status:  healthuc.Degraded,
		Checks:  map[string]healthuc.CheckResult{healthuc.CheckCatalog: healthuc.CheckOK, healthuc.CheckMahalanobis: healthuc.CheckUnavailable},
		Entries: 4,
	}}}

	h := e.Health(context.Background())
	if h.Status != "degraded" || h.Entries != 4 {
		t.Errorf("unexpected status %+v", h)
	}
	if h.Checks["mahalanobis"] != "unavailable" || h.Checks["catalog"] != "ok" {
		t.Errorf("unexpected checks %v", h.Checks)
	}
}

func TestObserver_NilSafe(t *testing.T) {
	// nil observer should not panic.
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("match", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("match", time.Now(), errors.New("fail"))

	if n, err := testutil.GatherAndCount(reg, "dbas_engine_operations_total"); err != nil || n != 2 {
		t.Errorf("expected 2 operation samples, got %d (%v)", n, err)
	}
	if n, err := testutil.GatherAndCount(reg, "dbas_engine_operation_duration_seconds"); err != nil || n != 1 {
		t.Errorf("expected 1 duration series, got %d (%v)", n, err)
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first newObserver: %v", err)
	}
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second newObserver must reuse collectors: %v", err)
	}
	obs.observe("reload", time.Now(), nil)

	if n, err := testutil.GatherAndCount(reg, "dbas_engine_operations_total"); err != nil || n != 1 {
		t.Errorf("expected 1 operation sample, got %d (%v)", n, err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	logger := slog.Default()
	obs, err := newObserver(logger, nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("match", time.Now(), nil)
	obs.observe("match", time.Now(), ErrUnknownDimension)
	obs.observe("reload", time.Now(), errors.New("disk gone"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
		level  slog.Level
	}{
		{"success", nil, statusOK, slog.LevelDebug},
		{"unknown group", fmt.Errorf("match: %w", ErrUnknownGroup), statusRejected, slog.LevelInfo},
		{"singular", ErrSingularMatrix, statusRejected, slog.LevelInfo},
		{"not loaded", ErrCatalogNotLoaded, statusError, slog.LevelWarn},
		{"io", errors.New("disk gone"), statusError, slog.LevelWarn},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, level := classify(tc.err)
			if status != tc.status || level != tc.level {
				t.Errorf("classify(%v) = %s/%v, want %s/%v", tc.err, status, level, tc.status, tc.level)
			}
		})
	}
}

func TestObserver_PartialSelections(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(slog.Default(), reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observePartial("match", nil)
	obs.observePartial("match", &Partial{Requested: 5, Returned: 2})
	obs.observePartial("compare", &Partial{Requested: 5, Returned: 0})

	if n, err := testutil.GatherAndCount(reg, "dbas_engine_partial_selections_total"); err != nil || n != 2 {
		t.Errorf("expected 2 partial series, got %d (%v)", n, err)
	}
}
