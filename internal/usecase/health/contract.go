package health

import (
	"context"

	"github.com/somunicate/dbas/internal/domain/snapshot"
)

// SnapshotProvider exposes the current reference snapshot.
type SnapshotProvider interface {
	Current() (*snapshot.Snapshot, error)
}

// CachePinger checks match cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
