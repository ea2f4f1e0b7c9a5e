package dbas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/somunicate/dbas/internal/db/redis"
	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/catalog"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/search/metric"
	"github.com/somunicate/dbas/internal/domain/search/query"
	"github.com/somunicate/dbas/internal/domain/search/result"
	"github.com/somunicate/dbas/internal/domain/snapshot"
	"github.com/somunicate/dbas/internal/metrics"
	"github.com/somunicate/dbas/internal/repository/matchcache"
	referencerepo "github.com/somunicate/dbas/internal/repository/reference"
	healthuc "github.com/somunicate/dbas/internal/usecase/health"
	matchuc "github.com/somunicate/dbas/internal/usecase/match"
	referenceuc "github.com/somunicate/dbas/internal/usecase/reference"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheTTL         = time.Hour
	defaultCachePrefix      = "dbas:"
)

// Internal interfaces for substitution in tests.
type matchUseCase interface {
	Match(ctx context.Context, q query.Query) (result.Selection, error)
	Compare(ctx context.Context, q query.Query, ms []metric.Metric) ([]matchuc.Outcome, error)
}

type referenceUseCase interface {
	Current() (*snapshot.Snapshot, error)
	Reload(ctx context.Context) (*snapshot.Snapshot, error)
}

// Engine is the dbas entry point. It is safe for concurrent use.
type Engine struct {
	store       *dbRedis.Store
	refSvc      referenceUseCase
	matchSvc    matchUseCase
	healthSvc   healthUseCase
	defaultTopN int
	obs         *observer
}

// New creates an Engine and loads the reference data.
// The provided context bounds the initial load and the cache readiness check.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := &engineConfig{
		defaultTopN: query.DefaultTopN,
		cacheTTL:    defaultCacheTTL,
		cachePrefix: defaultCachePrefix,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	source, err := createSource(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.defaultTopN < query.MinTopN || cfg.defaultTopN > query.MaxTopN {
		return nil, fmt.Errorf("dbas: %w: default top_n must be between %d and %d",
			domain.ErrInvalidQuery, query.MinTopN, query.MaxTopN)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	refSvc := referenceuc.New(source, logger)
	if _, err := refSvc.Load(ctx); err != nil {
		return nil, fmt.Errorf("dbas: load reference data: %w", err)
	}

	var matcher matchUseCase = matchuc.New(refSvc, logger)
	var pinger healthuc.CachePinger
	var store *dbRedis.Store
	if len(cfg.cacheAddrs) > 0 {
		store, err = createStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		cache := matchcache.New(matcher, refSvc, store, cfg.cacheTTL, cfg.cachePrefix, metrics.MatchCacheTotal, logger)
		refSvc.OnReload(cache.PurgeOnReload)
		matcher = cache
		pinger = store
	}

	return &Engine{
		store:       store,
		refSvc:      refSvc,
		matchSvc:    matcher,
		healthSvc:   healthuc.New(refSvc, pinger),
		defaultTopN: cfg.defaultTopN,
		obs:         obs,
	}, nil
}

func createSource(cfg *engineConfig) (referenceuc.Source, error) {
	opts := referencerepo.Options{
		Scores: referencerepo.ScoreFormat{
			Layout:            cfg.scores.Layout,
			Scale:             cfg.scores.Scale,
			IDColumn:          cfg.scores.IDColumn,
			FamiliarityOffset: cfg.scores.FamiliarityOffset,
		},
		IDColumn:      cfg.idColumn,
		DimensionFrom: cfg.dimensionFrom,
		DimensionTo:   cfg.dimensionTo,
	}
	for _, d := range cfg.dimensions {
		opts.Dimensions = append(opts.Dimensions, dimension.Dimension(d))
	}

	switch {
	case cfg.files != nil && cfg.tables != nil:
		return nil, errors.New("dbas: WithFiles and WithTables are mutually exclusive")
	case cfg.files != nil:
		opts.RatingsPath = cfg.files.Ratings
		opts.CorrelationsPath = cfg.files.Correlations
		opts.CorrelationDelimiter = cfg.files.CorrelationDelimiter
		opts.GroupsPath = cfg.files.Groups
		opts.ScoresPath = cfg.files.Scores
		return referencerepo.NewFileSource(opts), nil
	case cfg.tables != nil:
		return referencerepo.NewMemorySource(toInternalTables(*cfg.tables), opts), nil
	default:
		return nil, errors.New("dbas: reference data required (use WithFiles or WithTables)")
	}
}

func createStore(ctx context.Context, cfg *engineConfig) (*dbRedis.Store, error) {
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.cacheAddrs,
		Password: cfg.cachePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("dbas: create cache store: %w", err)
	}
	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("dbas: cache store not ready: %w", err)
	}
	return s, nil
}

func toInternalTables(t Tables) referencerepo.Tables {
	conv := func(source string, tb Table) catalog.Table {
		return catalog.Table{Source: source, Header: tb.Header, Rows: tb.Rows}
	}
	return referencerepo.Tables{
		Ratings:      conv("ratings", t.Ratings),
		Correlations: conv("correlations", t.Correlations),
		Groups:       conv("groups", t.Groups),
		Scores:       conv("scores", t.Scores),
	}
}

// Close releases all resources.
func (e *Engine) Close() {
	if e.store != nil {
		e.store.Close()
	}
}
