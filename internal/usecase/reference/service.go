package reference

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/snapshot"
	"github.com/somunicate/dbas/internal/metrics"
)

// ReloadHook runs after a reload replaced prev with next. Hook failures are
// the hook's concern; the new snapshot is already published.
type ReloadHook func(ctx context.Context, prev, next *snapshot.Snapshot)

// Service owns the current reference snapshot.
// Readers never block; reloads are serialized and swap the snapshot atomically.
type Service struct {
	source  Source
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
	current atomic.Pointer[snapshot.Snapshot]
	hooks   []ReloadHook
}

// New creates a snapshot service. Nothing is loaded until Load is called.
func New(source Source, logger *zap.Logger) *Service {
	return &Service{source: source, logger: logger, now: time.Now}
}

// OnReload registers a hook run after every successful reload. Not safe to
// call concurrently with Load.
func (s *Service) OnReload(h ReloadHook) {
	s.hooks = append(s.hooks, h)
}

// Load builds a snapshot from the source and publishes it.
// On failure the previously published snapshot stays current.
func (s *Service) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()

	ds, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to read reference data", zap.Error(err))
		return nil, fmt.Errorf("read reference data: %w", err)
	}

	snap, err := snapshot.Build(ds, s.now())
	if err != nil {
		s.logger.Error("Failed to build reference snapshot", zap.Error(err))
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	if !snap.MahalanobisAvailable() {
		s.logger.Warn("Mahalanobis distance unavailable",
			zap.String("version", snap.Version.String()),
			zap.Error(snap.MahalanobisErr()),
		)
	}

	prev := s.current.Swap(snap)
	metrics.ObserveSnapshot(snap.Catalog.Len(), snap.MahalanobisAvailable())

	s.logger.Info("Reference snapshot loaded",
		zap.String("version", snap.Version.String()),
		zap.Int("sounds", snap.Catalog.Len()),
		zap.Int("dimensions", len(snap.Catalog.Dimensions())),
		zap.Int("groups", len(snap.Directory.Groups())),
		zap.Bool("mahalanobis", snap.MahalanobisAvailable()),
		zap.Duration("duration", s.now().Sub(start)),
	)

	if prev != nil {
		for _, h := range s.hooks {
			h(ctx, prev, snap)
		}
	}
	return snap, nil
}

// Reload rebuilds the snapshot from the source.
func (s *Service) Reload(ctx context.Context) (*snapshot.Snapshot, error) {
	return s.Load(ctx)
}

// Current returns the published snapshot.
func (s *Service) Current() (*snapshot.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, domain.ErrCatalogNotLoaded
	}
	return snap, nil
}
