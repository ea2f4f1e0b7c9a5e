package dbas

import (
	"context"
	"fmt"
	"time"

	"github.com/somunicate/dbas/internal/domain/demographic"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/snapshot"
)

// Dimensions lists the rating dimensions of the loaded catalog in column order.
func (e *Engine) Dimensions() ([]Dimension, error) {
	snap, err := e.refSvc.Current()
	if err != nil {
		return nil, fmt.Errorf("dimensions: %w", err)
	}
	dims := snap.Catalog.Dimensions()
	out := make([]Dimension, 0, len(dims))
	for _, d := range dims {
		info := dimension.Lookup(d)
		out = append(out, Dimension{Key: string(info.Key), Label: info.Label, Level: string(info.Level)})
	}
	return out, nil
}

// Groups lists the demographic groups ordered by id.
func (e *Engine) Groups() ([]Group, error) {
	snap, err := e.refSvc.Current()
	if err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}
	groups := snap.Directory.Groups()
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, Group{
			ID:        int(g.ID),
			Gender:    g.Gender,
			Migration: g.Migration,
			Age:       g.Age,
			AgeRange:  demographic.AgeRanges[g.Age],
		})
	}
	return out, nil
}

// Snapshot describes the reference data currently in use.
func (e *Engine) Snapshot() (SnapshotInfo, error) {
	snap, err := e.refSvc.Current()
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("snapshot: %w", err)
	}
	return snapshotInfo(snap), nil
}

// Reload rereads the reference data and swaps it in atomically.
// On failure the previous data stays in use.
func (e *Engine) Reload(ctx context.Context) (_ SnapshotInfo, err error) {
	start := time.Now()
	defer func() { e.obs.observe("reload", start, err) }()

	snap, err := e.refSvc.Reload(ctx)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("reload: %w", err)
	}
	return snapshotInfo(snap), nil
}

func snapshotInfo(s *snapshot.Snapshot) SnapshotInfo {
	return SnapshotInfo{
		Version:              s.Version.String(),
		LoadedAt:             s.LoadedAt,
		Entries:              s.Catalog.Len(),
		MahalanobisAvailable: s.MahalanobisAvailable(),
	}
}
