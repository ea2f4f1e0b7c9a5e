package dbas

import "time"

// Metric is the distance measure used for ranking.
type Metric string

// Metric constants.
const (
	Euclidean   Metric = "euclidean"
	Mahalanobis Metric = "mahalanobis"
)

// Score table layouts.
const (
	LayoutLong = "long"
	LayoutWide = "wide"
)

// Score scales.
const (
	ScalePercent  = "percent"
	ScaleFraction = "fraction"
)

// Files locates the reference tables on disk. Groups and Scores are optional.
// Ratings and Scores may be CSV or Parquet (by extension).
type Files struct {
	Ratings      string
	Correlations string
	Groups       string
	Scores       string
	// CorrelationDelimiter defaults to ';'.
	CorrelationDelimiter rune
}

// Table is a parsed table: a header row and string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Tables holds the reference tables in memory. Groups and Scores are optional.
type Tables struct {
	Ratings      Table
	Correlations Table
	Groups       Table
	Scores       Table
}

// ScoreFormat describes the score table.
type ScoreFormat struct {
	Layout string // LayoutLong (default) or LayoutWide
	Scale  string // ScalePercent (default) or ScaleFraction
	// IDColumn defaults to the ratings identifier column.
	IDColumn string
	// FamiliarityOffset is the distance between a group's liking and
	// familiarity columns in the wide layout. Defaults to 12.
	FamiliarityOffset int
}

// Target is one selected dimension with its desired rating in [-1, 1].
type Target struct {
	Dimension string
	Value     float64
}

// Demographics selects listener groups by attribute. Empty fields do not restrict.
type Demographics struct {
	Genders    []string
	Migrations []string
	Ages       []string
}

// Query describes a match request.
type Query struct {
	Targets []Target
	// Metric defaults to Euclidean.
	Metric Metric
	// Groups and Demographics are mutually exclusive. Without either no
	// score filtering happens.
	Groups         []int
	Demographics   Demographics
	MinLiking      float64 // percent
	MinFamiliarity float64 // percent
	// TopN defaults to the engine's default (5).
	TopN int
}

// Result is one ranked sound. Liking and Familiarity are group means on the
// percent scale and only set when HasScores is true.
type Result struct {
	Sound       string
	Distance    float64
	Liking      float64
	Familiarity float64
	HasScores   bool
}

// Partial reports a selection shorter than requested.
type Partial struct {
	Requested int
	Returned  int
}

// Selection is the outcome of a match.
type Selection struct {
	Results []Result
	Partial *Partial
}

// Outcome is one metric's part of a comparison.
type Outcome struct {
	Metric    Metric
	Selection Selection
	Err       error
}

// Dimension describes one rating axis of the catalog.
type Dimension struct {
	Key   string
	Label string
	Level string
}

// Group describes one demographic group.
type Group struct {
	ID        int
	Gender    string
	Migration string
	Age       string
	AgeRange  string
}

// SnapshotInfo describes the loaded reference data.
type SnapshotInfo struct {
	Version              string
	LoadedAt             time.Time
	Entries              int
	MahalanobisAvailable bool
}
