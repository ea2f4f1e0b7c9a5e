// Package catalog holds the immutable in-memory table of rated sounds.
package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/demographic"
	"github.com/somunicate/dbas/internal/domain/dimension"
)

// DefaultIDColumn is the identifier column of the rating tables.
const DefaultIDColumn = "sound"

// Schema declares which columns of a rating table make up the catalog.
type Schema struct {
	IDColumn   string
	Dimensions []dimension.Dimension
}

// DefaultSchema returns the schema of the median rating table.
func DefaultSchema() Schema {
	return Schema{IDColumn: DefaultIDColumn, Dimensions: dimension.Known()}
}

// DimensionsFromRange declares the dimensions occupying the contiguous
// header range [from, to).
func DimensionsFromRange(header []string, from, to int) ([]dimension.Dimension, error) {
	if from < 0 || to > len(header) || from >= to {
		return nil, fmt.Errorf("invalid dimension column range [%d, %d) for %d columns", from, to, len(header))
	}
	dims := make([]dimension.Dimension, 0, to-from)
	for _, h := range header[from:to] {
		dims = append(dims, dimension.Dimension(strings.TrimSpace(h)))
	}
	return dims, nil
}

// Entry is one sound with its rating profile and group scores.
type Entry struct {
	id      string
	ratings []float64
	scores  map[demographic.GroupID]demographic.Scores
}

// ID returns the catalog key, also used to resolve the audio file.
func (e *Entry) ID() string { return e.id }

// Rating returns the rating at dimension index i. ok is false when undefined.
func (e *Entry) Rating(i int) (v float64, ok bool) {
	if i < 0 || i >= len(e.ratings) {
		return math.NaN(), false
	}
	v = e.ratings[i]
	return v, !math.IsNaN(v)
}

// Scores returns the per-group scores. The map must not be modified.
func (e *Entry) Scores() map[demographic.GroupID]demographic.Scores { return e.scores }

// HasScores reports whether any group scores are attached.
func (e *Entry) HasScores() bool { return len(e.scores) > 0 }

// Catalog is the immutable set of rated sounds.
type Catalog struct {
	dims        dimension.Set
	entries     []Entry
	byID        map[string]int
	scoreGroups map[demographic.GroupID]struct{}
}

// Load builds a catalog from a rating table and optional group scores.
// Non-numeric rating cells are kept as undefined. A missing identifier column,
// a missing dimension column or a duplicate identifier fails the whole load.
// Scores for sounds absent from the rating table are ignored.
func Load(t Table, schema Schema, scores []demographic.SoundScores) (*Catalog, error) {
	if schema.IDColumn == "" {
		schema.IDColumn = DefaultIDColumn
	}
	if len(schema.Dimensions) == 0 {
		return nil, domain.NewDataFormatError(t.Source, "", "no dimensions declared")
	}

	dims, err := dimension.NewSet(schema.Dimensions)
	if err != nil {
		return nil, domain.NewDataFormatError(t.Source, "", err.Error())
	}

	idCol, ok := t.ColumnIndex(schema.IDColumn)
	if !ok {
		return nil, domain.NewDataFormatError(t.Source, schema.IDColumn, "identifier column missing")
	}

	dimCols := make([]int, dims.Len())
	for i, d := range dims.All() {
		col, found := t.ColumnIndex(string(d))
		if !found {
			return nil, domain.NewDataFormatError(t.Source, string(d), "dimension column missing")
		}
		dimCols[i] = col
	}

	c := &Catalog{
		dims:    dims,
		entries: make([]Entry, 0, len(t.Rows)),
		byID:    make(map[string]int, len(t.Rows)),
	}

	for row := range t.Rows {
		id := strings.TrimSpace(t.Cell(row, idCol))
		if id == "" {
			return nil, domain.NewDataFormatError(t.Source, schema.IDColumn,
				fmt.Sprintf("empty identifier in row %d", row+1))
		}
		if _, dup := c.byID[id]; dup {
			return nil, domain.NewDataFormatError(t.Source, schema.IDColumn,
				fmt.Sprintf("duplicate identifier %q", id))
		}

		ratings := make([]float64, len(dimCols))
		for i, col := range dimCols {
			ratings[i] = ParseRating(t.Cell(row, col))
		}

		c.byID[id] = len(c.entries)
		c.entries = append(c.entries, Entry{id: id, ratings: ratings})
	}

	if err := c.attachScores(scores); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) attachScores(scores []demographic.SoundScores) error {
	for _, s := range scores {
		idx, ok := c.byID[strings.TrimSpace(s.Sound)]
		if !ok {
			continue
		}
		e := &c.entries[idx]
		if e.scores == nil {
			e.scores = make(map[demographic.GroupID]demographic.Scores)
		}
		if _, dup := e.scores[s.Group]; dup {
			return domain.NewDataFormatError("scores", "",
				fmt.Sprintf("duplicate score for sound %q group %d", e.id, s.Group))
		}
		e.scores[s.Group] = s.Scores
		if c.scoreGroups == nil {
			c.scoreGroups = make(map[demographic.GroupID]struct{})
		}
		c.scoreGroups[s.Group] = struct{}{}
	}
	return nil
}

// ScoredGroup reports whether any catalog entry carries a score for group id.
func (c *Catalog) ScoredGroup(id demographic.GroupID) bool {
	_, ok := c.scoreGroups[id]
	return ok
}

// Dimensions returns the catalog dimensions in column order.
func (c *Catalog) Dimensions() []dimension.Dimension { return c.dims.All() }

// DimensionSet returns the ordered dimension set.
func (c *Catalog) DimensionSet() dimension.Set { return c.dims }

// Entries returns all entries in insertion order. Entries are read-only.
func (c *Catalog) Entries() []Entry { return c.entries }

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Entry returns the entry with the given identifier.
func (c *Catalog) Entry(id string) (*Entry, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.entries[idx], true
}

// Column returns the defined ratings of dimension index i across all entries.
func (c *Catalog) Column(i int) []float64 {
	out := make([]float64, 0, len(c.entries))
	for k := range c.entries {
		if v, ok := c.entries[k].Rating(i); ok {
			out = append(out, v)
		}
	}
	return out
}
