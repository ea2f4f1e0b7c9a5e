package dbas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcome labels.
const (
	statusOK       = "ok"
	statusRejected = "rejected"
	statusError    = "error"
)

type engineMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	partial    *prometheus.CounterVec
}

func newEngineMetrics(reg prometheus.Registerer) (*engineMetrics, error) {
	m := &engineMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbas",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by type and outcome (ok, rejected, error).",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dbas",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		}, []string{"operation"}),
		partial: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbas",
			Subsystem: "engine",
			Name:      "partial_selections_total",
			Help:      "Selections that returned fewer sounds than requested.",
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.partial); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or swaps in the collector already registered
// under the same descriptor.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("dbas: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("dbas: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// classify maps an operation error to its status label and log level.
// Caller mistakes and degenerate data are rejections, not failures.
func classify(err error) (string, slog.Level) {
	switch {
	case err == nil:
		return statusOK, slog.LevelDebug
	case errors.Is(err, ErrSingularMatrix), errors.Is(err, ErrInvalidQuery),
		errors.Is(err, ErrEmptyDimensionSet), errors.Is(err, ErrUnknownDimension),
		errors.Is(err, ErrUnknownGroup):
		return statusRejected, slog.LevelInfo
	default:
		return statusError, slog.LevelWarn
	}
}

// observer logs and counts engine operations. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *engineMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newEngineMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status, level := classify(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}
	attrs := []slog.Attr{slog.String("op", op), slog.String("status", status), slog.Duration("duration", dur)}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	o.logger.LogAttrs(context.Background(), level, "engine operation", attrs...)
}

// observePartial records a selection cut short by the eligibility filters.
func (o *observer) observePartial(op string, p *Partial) {
	if o == nil || p == nil {
		return
	}
	if o.metrics != nil {
		o.metrics.partial.WithLabelValues(op).Inc()
	}
	if o.logger != nil {
		o.logger.Debug("partial selection", "op", op, "requested", p.Requested, "returned", p.Returned)
	}
}
