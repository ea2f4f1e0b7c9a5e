package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataFormat signals malformed or missing reference data columns.
	ErrDataFormat = errors.New("data format error")
	// ErrSingularMatrix signals a covariance matrix that cannot be inverted.
	// Σ counts as singular when it is not positive definite, when a dimension
	// has zero or undefined variance, or when its condition number exceeds
	// correlation.MaxCondition (1e12), even if an exact inverse exists.
	// Mahalanobis distance is unavailable until the reference data is corrected.
	ErrSingularMatrix = errors.New("covariance matrix is singular")
	// ErrEmptyDimensionSet signals a query without selected dimensions.
	ErrEmptyDimensionSet = errors.New("no dimensions selected")
	// ErrInvalidQuery signals a malformed query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnknownDimension signals a dimension missing from the catalog.
	ErrUnknownDimension = errors.New("unknown dimension")
	// ErrUnknownGroup signals a demographic group missing from the directory.
	ErrUnknownGroup = errors.New("unknown demographic group")
	// ErrCatalogNotLoaded signals that no reference snapshot is available yet.
	ErrCatalogNotLoaded = errors.New("catalog not loaded")
	// ErrSoundNotFound signals a missing catalog entry.
	ErrSoundNotFound = errors.New("sound not found")
)

// DataFormatError wraps ErrDataFormat with the offending source and column.
type DataFormatError struct {
	Source string
	Column string
	Reason string
}

func (e *DataFormatError) Error() string {
	msg := ErrDataFormat.Error()
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" (column %q)", e.Column)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *DataFormatError) Unwrap() error { return ErrDataFormat }

// NewDataFormatError creates a data format error.
func NewDataFormatError(source, column, reason string) error {
	return &DataFormatError{Source: source, Column: column, Reason: reason}
}

// PartialResultWarning reports that fewer results survived filtering than
// were requested. It is informational: the results found are still returned.
type PartialResultWarning struct {
	Requested int
	Returned  int
}

// Missing returns how many results could not be provided.
func (w *PartialResultWarning) Missing() int { return w.Requested - w.Returned }

func (w *PartialResultWarning) Error() string {
	return fmt.Sprintf("partial result: %d of %d requested sounds returned", w.Returned, w.Requested)
}
