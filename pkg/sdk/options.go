package dbas

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	files  *Files
	tables *Tables
	scores ScoreFormat

	idColumn      string
	dimensions    []string
	dimensionFrom int
	dimensionTo   int
	defaultTopN   int

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration
	cachePrefix   string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithFiles loads reference data from files. Reload rereads them.
func WithFiles(f Files) Option {
	return optionFunc(func(c *engineConfig) {
		c.files = &f
	})
}

// WithTables loads reference data from in-memory tables.
func WithTables(t Tables) Option {
	return optionFunc(func(c *engineConfig) {
		c.tables = &t
	})
}

// WithScoreFormat describes the score table layout and scale.
func WithScoreFormat(f ScoreFormat) Option {
	return optionFunc(func(c *engineConfig) {
		c.scores = f
	})
}

// WithIDColumn sets the identifier column of the rating table. Default: "sound".
func WithIDColumn(name string) Option {
	return optionFunc(func(c *engineConfig) {
		c.idColumn = name
	})
}

// WithDimensions declares the rating columns explicitly.
// Default: the known perceptual dimensions.
func WithDimensions(dims ...string) Option {
	return optionFunc(func(c *engineConfig) {
		c.dimensions = dims
	})
}

// WithDimensionRange declares the rating columns as the header range [from, to).
func WithDimensionRange(from, to int) Option {
	return optionFunc(func(c *engineConfig) {
		c.dimensionFrom = from
		c.dimensionTo = to
	})
}

// WithDefaultTopN sets the result count used when a query leaves TopN unset.
// Default: 5.
func WithDefaultTopN(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.defaultTopN = n
	})
}

// WithValkey caches match results in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *engineConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithRedis caches match results in a Redis instance.
func WithRedis(addr, password string) Option {
	return WithValkey(addr, password)
}

// WithCacheTTL sets how long cached results live. Default: 1 hour.
func WithCacheTTL(d time.Duration) Option {
	return optionFunc(func(c *engineConfig) {
		c.cacheTTL = d
	})
}

// WithCachePrefix sets the key prefix of cached results. Default: "dbas:".
func WithCachePrefix(p string) Option {
	return optionFunc(func(c *engineConfig) {
		c.cachePrefix = p
	})
}

// WithLogger enables structured logging for engine operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}

// WithPrometheus registers engine metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *engineConfig) {
		c.metricsReg = reg
	})
}
