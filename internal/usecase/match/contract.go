package match

import (
	"context"

	"github.com/somunicate/dbas/internal/domain/search/query"
	"github.com/somunicate/dbas/internal/domain/search/result"
	"github.com/somunicate/dbas/internal/domain/snapshot"
)

// SnapshotProvider returns the reference snapshot queries run against.
type SnapshotProvider interface {
	Current() (*snapshot.Snapshot, error)
}

// Matcher runs a single match query. Service implements it; decorators wrap it.
type Matcher interface {
	Match(ctx context.Context, q query.Query) (result.Selection, error)
}
