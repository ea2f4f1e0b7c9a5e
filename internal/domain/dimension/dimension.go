// Package dimension defines the perceptual rating axes of the sound catalog.
package dimension

import "fmt"

// Dimension is the stable key of a perceptual rating axis (e.g. "positivity").
type Dimension string

// Level groups dimensions by the communication purpose they describe.
type Level string

// Communication levels.
const (
	Status        Level = "Status"
	Appeal        Level = "Appeal"
	BrandIdentity Level = "Brand Identity"
)

// Info describes a known dimension.
type Info struct {
	Key   Dimension
	Label string
	Level Level
}

// known lists the rating axes in catalog column order.
var known = []Info{
	{"being_ready", "Being Ready", Status},
	{"having_news", "Having News", Status},
	{"being_empty", "Being Empty", Status},
	{"shutting_down", "Shutting Down", Status},
	{"negative_warnings", "Negative Warnings", Appeal},
	{"urgency_reminder", "Urgency Reminder", Appeal},
	{"encouraging_confirmations", "Encouraging Confirmations", Appeal},
	{"starting_prompts", "Starting Prompts", Appeal},
	{"waiting_prompts", "Waiting Prompts", Appeal},
	{"sophistication", "Sophistication", BrandIdentity},
	{"positivity", "Positivity", BrandIdentity},
	{"progressiveness", "Progressiveness", BrandIdentity},
	{"dominance", "Dominance", BrandIdentity},
	{"solidity", "Solidity", BrandIdentity},
	{"process_ongoing", "Process Ongoing", Status},
	{"having_a_problem", "Having A Problem", Status},
	{"having_finished_successfully", "Having Finished Successfully", Status},
	{"purity", "Purity", BrandIdentity},
	{"playfulness", "Playfulness", BrandIdentity},
}

var byKey = func() map[Dimension]Info {
	m := make(map[Dimension]Info, len(known))
	for _, info := range known {
		m[info.Key] = info
	}
	return m
}()

// Known returns the default rating axes in catalog column order.
func Known() []Dimension {
	out := make([]Dimension, len(known))
	for i, info := range known {
		out[i] = info.Key
	}
	return out
}

// Lookup returns the description of a dimension.
// Dimensions outside the known set get their key as label and no level.
func Lookup(d Dimension) Info {
	if info, ok := byKey[d]; ok {
		return info
	}
	return Info{Key: d, Label: string(d)}
}

// Set is an ordered set of dimensions with index lookup.
type Set struct {
	order []Dimension
	index map[Dimension]int
}

// NewSet builds an ordered set. Empty keys and duplicates are rejected.
func NewSet(dims []Dimension) (Set, error) {
	s := Set{
		order: make([]Dimension, 0, len(dims)),
		index: make(map[Dimension]int, len(dims)),
	}
	for _, d := range dims {
		if d == "" {
			return Set{}, fmt.Errorf("empty dimension key")
		}
		if _, dup := s.index[d]; dup {
			return Set{}, fmt.Errorf("duplicate dimension %q", d)
		}
		s.index[d] = len(s.order)
		s.order = append(s.order, d)
	}
	return s, nil
}

// Len returns the number of dimensions.
func (s Set) Len() int { return len(s.order) }

// All returns the dimensions in order.
func (s Set) All() []Dimension {
	out := make([]Dimension, len(s.order))
	copy(out, s.order)
	return out
}

// Index returns the position of d in the set.
func (s Set) Index(d Dimension) (int, bool) {
	i, ok := s.index[d]
	return i, ok
}

// Contains reports whether d belongs to the set.
func (s Set) Contains(d Dimension) bool {
	_, ok := s.index[d]
	return ok
}
