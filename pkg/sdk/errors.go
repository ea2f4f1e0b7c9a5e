package dbas

import "github.com/somunicate/dbas/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDataFormat        = domain.ErrDataFormat
	// ErrSingularMatrix also covers covariances whose condition number exceeds 1e12.
	ErrSingularMatrix    = domain.ErrSingularMatrix
	ErrEmptyDimensionSet = domain.ErrEmptyDimensionSet
	ErrInvalidQuery      = domain.ErrInvalidQuery
	ErrUnknownDimension  = domain.ErrUnknownDimension
	ErrUnknownGroup      = domain.ErrUnknownGroup
	ErrCatalogNotLoaded  = domain.ErrCatalogNotLoaded
)

// DataFormatError carries the offending source and column of a rejected table.
type DataFormatError = domain.DataFormatError
