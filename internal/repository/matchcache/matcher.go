// Package matchcache caches match selections in a key-value store.
package matchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/somunicate/dbas/internal/db"
	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/demographic"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/search/metric"
	"github.com/somunicate/dbas/internal/domain/search/query"
	"github.com/somunicate/dbas/internal/domain/search/result"
	"github.com/somunicate/dbas/internal/domain/snapshot"
	matchuc "github.com/somunicate/dbas/internal/usecase/match"
)

const keySpace = "match:"

// store is the consumer interface for the match cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

type snapshotProvider interface {
	Current() (*snapshot.Snapshot, error)
}

// CachedMatcher caches selections per snapshot version and query.
// A reload changes the version, so stale entries are never read. Purge drops
// them early; otherwise they expire by TTL.
type CachedMatcher struct {
	inner      matchuc.Matcher
	snapshots  snapshotProvider
	store      store
	ttl        time.Duration
	prefix     string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner matchuc.Matcher,
	snapshots snapshotProvider,
	s store,
	ttl time.Duration,
	keyPrefix string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedMatcher {
	return &CachedMatcher{
		inner:      inner,
		snapshots:  snapshots,
		store:      s,
		ttl:        ttl,
		prefix:     keyPrefix + keySpace,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Match returns a cached selection or runs the inner matcher.
// Cache failures are logged and never fail the query. Errors are not cached.
func (c *CachedMatcher) Match(ctx context.Context, q query.Query) (result.Selection, error) {
	snap, err := c.snapshots.Current()
	if err != nil {
		return c.inner.Match(ctx, q) //nolint:wrapcheck // transparent decorator
	}

	key, err := c.cacheKey(snap, q)
	if err != nil {
		c.logger.Warn("Failed to build match cache key", zap.Error(err))
		return c.inner.Match(ctx, q) //nolint:wrapcheck // transparent decorator
	}

	if sel, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return sel, nil
	}
	c.incCache("miss")

	sel, err := c.inner.Match(ctx, q)
	if err != nil {
		return result.Selection{}, err //nolint:wrapcheck // transparent decorator
	}

	c.putToCache(ctx, key, sel)
	return sel, nil
}

// Compare runs q once per metric through the cache.
func (c *CachedMatcher) Compare(ctx context.Context, q query.Query, ms []metric.Metric) ([]matchuc.Outcome, error) {
	return matchuc.Compare(ctx, c, q, ms)
}

// Purge removes every cached selection under this matcher's key prefix.
func (c *CachedMatcher) Purge(ctx context.Context) (int, error) {
	n, err := c.store.DeletePrefix(ctx, c.prefix)
	if err != nil {
		return n, fmt.Errorf("purge match cache: %w", err)
	}
	return n, nil
}

// PurgeOnReload drops entries of the replaced snapshot. It has the shape of a
// reference reload hook and only logs failures.
func (c *CachedMatcher) PurgeOnReload(ctx context.Context, prev, next *snapshot.Snapshot) {
	n, err := c.Purge(ctx)
	if err != nil {
		c.logger.Warn("Failed to purge match cache after reload",
			zap.String("previous_version", prev.Version.String()),
			zap.Error(err),
		)
		return
	}
	c.logger.Info("Match cache purged after reload",
		zap.String("previous_version", prev.Version.String()),
		zap.String("version", next.Version.String()),
		zap.Int("entries", n),
	)
}

func (c *CachedMatcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKeyBody is the canonical form of a query. Groups are already sorted by query.New.
type cacheKeyBody struct {
	Version        string                `json:"v"`
	Dimensions     []dimension.Dimension `json:"d"`
	Targets        []float64             `json:"t"`
	Metric         metric.Metric         `json:"m"`
	Groups         []demographic.GroupID `json:"g"`
	MinLiking      float64               `json:"l"`
	MinFamiliarity float64               `json:"f"`
	TopN           int                   `json:"n"`
}

func (c *CachedMatcher) cacheKey(snap *snapshot.Snapshot, q query.Query) (string, error) {
	body, err := json.Marshal(cacheKeyBody{
		Version:        snap.Version.String(),
		Dimensions:     q.Dimensions(),
		Targets:        q.Targets(),
		Metric:         q.Metric(),
		Groups:         q.Groups(),
		MinLiking:      q.MinLiking(),
		MinFamiliarity: q.MinFamiliarity(),
		TopN:           q.TopN(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal cache key: %w", err)
	}
	h := sha256.Sum256(body)
	return c.prefix + hex.EncodeToString(h[:]), nil
}

func (c *CachedMatcher) getFromCache(ctx context.Context, key string) (result.Selection, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached selection", zap.String("key", key), zap.Error(err))
		}
		return result.Selection{}, false
	}
	if len(data) == 0 {
		return result.Selection{}, false
	}

	sel, err := decodeSelection(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached selection", zap.String("key", key), zap.Error(err))
		return result.Selection{}, false
	}
	return sel, true
}

func (c *CachedMatcher) putToCache(ctx context.Context, key string, sel result.Selection) {
	data, err := encodeSelection(sel)
	if err != nil {
		c.logger.Warn("Failed to encode selection", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache selection", zap.String("key", key), zap.Error(err))
	}
}

type cachedResult struct {
	Sound       string   `json:"s"`
	Distance    float64  `json:"d"`
	Liking      *float64 `json:"l,omitempty"`
	Familiarity *float64 `json:"f,omitempty"`
}

type cachedSelection struct {
	Results   []cachedResult `json:"r"`
	Requested int            `json:"rq,omitempty"`
	Returned  int            `json:"rt,omitempty"`
	Partial   bool           `json:"p,omitempty"`
}

func encodeSelection(sel result.Selection) ([]byte, error) {
	cs := cachedSelection{Results: make([]cachedResult, len(sel.Results))}
	for i := range sel.Results {
		r := &sel.Results[i]
		cr := cachedResult{Sound: r.Sound(), Distance: r.Distance()}
		if r.HasScores() {
			liking, fam := r.Liking(), r.Familiarity()
			cr.Liking, cr.Familiarity = &liking, &fam
		}
		cs.Results[i] = cr
	}
	if sel.Warning != nil {
		cs.Partial = true
		cs.Requested = sel.Warning.Requested
		cs.Returned = sel.Warning.Returned
	}
	data, err := json.Marshal(cs)
	if err != nil {
		return nil, fmt.Errorf("marshal selection: %w", err)
	}
	return data, nil
}

func decodeSelection(data []byte) (result.Selection, error) {
	var cs cachedSelection
	if err := json.Unmarshal(data, &cs); err != nil {
		return result.Selection{}, fmt.Errorf("unmarshal selection: %w", err)
	}
	sel := result.Selection{Results: make([]result.Result, len(cs.Results))}
	for i, cr := range cs.Results {
		r := result.New(cr.Sound, cr.Distance)
		if cr.Liking != nil && cr.Familiarity != nil {
			r = r.WithScores(*cr.Liking, *cr.Familiarity)
		}
		sel.Results[i] = r
	}
	if cs.Partial {
		sel.Warning = &domain.PartialResultWarning{Requested: cs.Requested, Returned: cs.Returned}
	}
	return sel, nil
}
