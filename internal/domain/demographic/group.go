// Package demographic models listener groups and their per-sound preference scores.
package demographic

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// GroupID identifies a demographic group.
type GroupID int

// Age bracket labels as used in the membership table.
const (
	AgeGroup1 = "Age Group 1" // 18-35
	AgeGroup2 = "Age Group 2" // 36-54
	AgeGroup3 = "Age Group 3" // 55+
)

// AgeRanges maps age bracket labels to human readable ranges.
var AgeRanges = map[string]string{
	AgeGroup1: "Ages 18-35",
	AgeGroup2: "Ages 36-54",
	AgeGroup3: "Ages 55+",
}

// Group is one cell of the gender x migration background x age matrix.
type Group struct {
	ID        GroupID
	Gender    string
	Migration string
	Age       string
}

// Scores are the aggregate preference values of one group for one sound,
// on the percent scale (0..100). NaN marks an undefined value.
type Scores struct {
	Liking      float64
	Familiarity float64
}

// SoundScores is one row of the per-sound-per-group score table.
type SoundScores struct {
	Sound string
	Group GroupID
	Scores
}

// Criteria is a demographic selection. Each non-empty field restricts the
// resolved groups to those whose attribute is listed; empty fields do not restrict.
type Criteria struct {
	Genders    []string
	Migrations []string
	Ages       []string
}

// IsEmpty reports whether no criterion is selected.
func (c Criteria) IsEmpty() bool {
	return len(c.Genders) == 0 && len(c.Migrations) == 0 && len(c.Ages) == 0
}

// Directory is the immutable group membership table.
type Directory struct {
	groups []Group
	byID   map[GroupID]Group
}

// NewDirectory validates and indexes groups. Duplicate ids are rejected.
func NewDirectory(groups []Group) (*Directory, error) {
	d := &Directory{
		groups: make([]Group, 0, len(groups)),
		byID:   make(map[GroupID]Group, len(groups)),
	}
	for _, g := range groups {
		if _, dup := d.byID[g.ID]; dup {
			return nil, fmt.Errorf("duplicate group id %d", g.ID)
		}
		d.byID[g.ID] = g
		d.groups = append(d.groups, g)
	}
	return d, nil
}

// Groups returns all groups in table order.
func (d *Directory) Groups() []Group {
	if d == nil {
		return nil
	}
	return slices.Clone(d.groups)
}

// Get returns a group by id.
func (d *Directory) Get(id GroupID) (Group, bool) {
	if d == nil {
		return Group{}, false
	}
	g, ok := d.byID[id]
	return g, ok
}

// Resolve returns the ids of all groups matching the criteria.
// Empty criteria resolve to no groups, which callers treat as "no restriction".
func (d *Directory) Resolve(c Criteria) []GroupID {
	if d == nil || c.IsEmpty() {
		return nil
	}
	var ids []GroupID
	for _, g := range d.groups {
		if matches(c.Genders, g.Gender) && matches(c.Migrations, g.Migration) && matches(c.Ages, g.Age) {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

func matches(selected []string, value string) bool {
	return len(selected) == 0 || slices.Contains(selected, value)
}

// Aggregate computes the mean liking and mean familiarity of a sound over
// exactly the given groups. ok is false when any of them has no score row or
// an undefined liking or familiarity: a mean over a subset of the selection
// is not the selection's mean.
func Aggregate(scores map[GroupID]Scores, groups []GroupID) (agg Scores, ok bool) {
	undefined := Scores{Liking: math.NaN(), Familiarity: math.NaN()}
	if len(groups) == 0 {
		return undefined, false
	}
	liking := make([]float64, 0, len(groups))
	familiarity := make([]float64, 0, len(groups))
	for _, id := range groups {
		s, found := scores[id]
		if !found || math.IsNaN(s.Liking) || math.IsNaN(s.Familiarity) {
			return undefined, false
		}
		liking = append(liking, s.Liking)
		familiarity = append(familiarity, s.Familiarity)
	}
	return Scores{
		Liking:      stat.Mean(liking, nil),
		Familiarity: stat.Mean(familiarity, nil),
	}, true
}

// Len returns the number of groups in the directory.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.groups)
}
