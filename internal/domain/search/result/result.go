package result

import (
	"math"

	"github.com/somunicate/dbas/internal/domain"
)

// Result is a single ranked sound.
type Result struct {
	sound       string
	distance    float64
	liking      float64
	familiarity float64
	hasScores   bool
}

// New creates a ranked result without demographic scores.
func New(sound string, distance float64) Result {
	return Result{sound: sound, distance: distance, liking: math.NaN(), familiarity: math.NaN()}
}

// WithScores returns a copy carrying aggregate demographic scores.
func (r Result) WithScores(liking, familiarity float64) Result {
	r.liking, r.familiarity, r.hasScores = liking, familiarity, true
	return r
}

// Sound returns the catalog identifier.
func (r *Result) Sound() string { return r.sound }

// Distance returns the distance to the target profile.
func (r *Result) Distance() float64 { return r.distance }

// Liking returns the aggregate liking in percent (NaN without scores).
func (r *Result) Liking() float64 { return r.liking }

// Familiarity returns the aggregate familiarity in percent (NaN without scores).
func (r *Result) Familiarity() float64 { return r.familiarity }

// HasScores reports whether aggregate scores were computed.
func (r *Result) HasScores() bool { return r.hasScores }

// Selection is the ordered outcome of one query.
type Selection struct {
	Results []Result
	// Warning is set when fewer than the requested results survived filtering.
	Warning *domain.PartialResultWarning
}

// Partial reports whether the selection is shorter than requested.
func (s *Selection) Partial() bool { return s.Warning != nil }
