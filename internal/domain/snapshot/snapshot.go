// Package snapshot defines the immutable reference state shared by concurrent queries.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/catalog"
	"github.com/somunicate/dbas/internal/domain/correlation"
	"github.com/somunicate/dbas/internal/domain/demographic"
)

// Snapshot is one consistent generation of reference data.
// Model is nil when the covariance was singular; ModelErr then says why.
type Snapshot struct {
	Version   uuid.UUID
	LoadedAt  time.Time
	Catalog   *catalog.Catalog
	Model     *correlation.Model
	ModelErr  error
	Directory *demographic.Directory
}

// Build assembles a snapshot from a dataset. Malformed data fails the build.
// A singular covariance does not: the snapshot is returned with Model unset.
func Build(ds catalog.Dataset, now time.Time) (*Snapshot, error) {
	cat, err := catalog.Load(ds.Ratings, ds.Schema, ds.Scores)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	dir, err := demographic.NewDirectory(ds.Groups)
	if err != nil {
		return nil, domain.NewDataFormatError("groups", "", err.Error())
	}

	s := &Snapshot{
		Version:   uuid.New(),
		LoadedAt:  now,
		Catalog:   cat,
		Directory: dir,
	}

	model, err := correlation.FromCatalog(cat, ds.Correlations)
	switch {
	case err == nil:
		s.Model = model
	case errors.Is(err, domain.ErrSingularMatrix):
		s.ModelErr = err
	default:
		return nil, fmt.Errorf("build correlation model: %w", err)
	}
	return s, nil
}

// MahalanobisAvailable reports whether the inverse covariance could be computed.
func (s *Snapshot) MahalanobisAvailable() bool { return s.Model != nil }

// MahalanobisErr returns the reason Mahalanobis ranking is unavailable, or nil.
func (s *Snapshot) MahalanobisErr() error {
	if s.Model != nil {
		return nil
	}
	if s.ModelErr != nil {
		return s.ModelErr
	}
	return domain.ErrSingularMatrix
}
