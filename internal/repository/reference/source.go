// Package reference reads the rating, correlation, group and score tables.
package reference

import (
	"context"
	"fmt"

	"github.com/somunicate/dbas/internal/domain/catalog"
	"github.com/somunicate/dbas/internal/domain/dimension"
)

// DefaultCorrelationDelimiter separates fields of the correlation table.
const DefaultCorrelationDelimiter = ';'

// Options locates the reference files and describes their layout.
type Options struct {
	RatingsPath          string
	CorrelationsPath     string
	CorrelationDelimiter rune
	// GroupsPath and ScoresPath are optional. Without them no demographic filtering is possible.
	GroupsPath string
	ScoresPath string
	Scores     ScoreFormat

	IDColumn string
	// Dimensions lists the rating columns explicitly. When empty and
	// DimensionTo > 0 the header range [DimensionFrom, DimensionTo) is used,
	// otherwise the known dimensions.
	Dimensions    []dimension.Dimension
	DimensionFrom int
	DimensionTo   int
}

func (o Options) withDefaults() Options {
	if o.CorrelationDelimiter == 0 {
		o.CorrelationDelimiter = DefaultCorrelationDelimiter
	}
	if o.IDColumn == "" {
		o.IDColumn = catalog.DefaultIDColumn
	}
	if o.Scores.IDColumn == "" {
		o.Scores.IDColumn = o.IDColumn
	}
	return o
}

// Tables holds the raw reference tables. Groups and Scores are optional:
// a table without a header is treated as absent.
type Tables struct {
	Ratings      catalog.Table
	Correlations catalog.Table
	Groups       catalog.Table
	Scores       catalog.Table
}

// FileSource loads reference data from local files.
type FileSource struct {
	opts Options
}

// NewFileSource creates a file-backed source.
func NewFileSource(opts Options) *FileSource {
	return &FileSource{opts: opts.withDefaults()}
}

// Load reads every configured file. Each call rereads the files from disk.
func (s *FileSource) Load(ctx context.Context) (catalog.Dataset, error) {
	var t Tables
	var err error

	if t.Ratings, err = readTable(s.opts.RatingsPath, ','); err != nil {
		return catalog.Dataset{}, fmt.Errorf("ratings: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return catalog.Dataset{}, fmt.Errorf("load reference data: %w", err)
	}

	if t.Correlations, err = readTable(s.opts.CorrelationsPath, s.opts.CorrelationDelimiter); err != nil {
		return catalog.Dataset{}, fmt.Errorf("correlations: %w", err)
	}

	if s.opts.GroupsPath != "" {
		if t.Groups, err = readTable(s.opts.GroupsPath, ','); err != nil {
			return catalog.Dataset{}, fmt.Errorf("groups: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return catalog.Dataset{}, fmt.Errorf("load reference data: %w", err)
	}

	if s.opts.ScoresPath != "" {
		if t.Scores, err = readTable(s.opts.ScoresPath, ','); err != nil {
			return catalog.Dataset{}, fmt.Errorf("scores: %w", err)
		}
	}

	return assemble(t, s.opts)
}

// MemorySource serves reference data from tables already held in memory.
type MemorySource struct {
	tables Tables
	opts   Options
}

// NewMemorySource creates a source over fixed tables. File paths in opts are ignored.
func NewMemorySource(tables Tables, opts Options) *MemorySource {
	return &MemorySource{tables: tables, opts: opts.withDefaults()}
}

// Load parses the tables. It never touches the filesystem.
func (s *MemorySource) Load(ctx context.Context) (catalog.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Dataset{}, fmt.Errorf("load reference data: %w", err)
	}
	return assemble(s.tables, s.opts)
}

func assemble(t Tables, opts Options) (catalog.Dataset, error) {
	ds := catalog.Dataset{Ratings: t.Ratings, Correlations: t.Correlations}

	var err error
	if ds.Schema, err = schema(opts, t.Ratings.Header); err != nil {
		return catalog.Dataset{}, fmt.Errorf("ratings: %w", err)
	}

	if len(t.Groups.Header) > 0 {
		if ds.Groups, err = parseGroups(t.Groups); err != nil {
			return catalog.Dataset{}, fmt.Errorf("groups: %w", err)
		}
	}

	if len(t.Scores.Header) > 0 {
		if ds.Scores, err = parseScores(t.Scores, opts.Scores, groupIDs(ds.Groups)); err != nil {
			return catalog.Dataset{}, fmt.Errorf("scores: %w", err)
		}
	}

	return ds, nil
}

func schema(opts Options, header []string) (catalog.Schema, error) {
	s := catalog.Schema{IDColumn: opts.IDColumn, Dimensions: opts.Dimensions}
	switch {
	case len(s.Dimensions) > 0:
	case opts.DimensionTo > 0:
		dims, err := catalog.DimensionsFromRange(header, opts.DimensionFrom, opts.DimensionTo)
		if err != nil {
			return catalog.Schema{}, err
		}
		s.Dimensions = dims
	default:
		s.Dimensions = dimension.Known()
	}
	return s, nil
}
