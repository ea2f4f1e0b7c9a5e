package catalog

import (
	"math"
	"strconv"
	"strings"
)

// Table is an already-parsed tabular source: a header row and string cells.
// Source names the origin (usually a file name) for error messages.
type Table struct {
	Source string
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the position of a header column (whitespace-insensitive).
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i, true
		}
	}
	return -1, false
}

// Cell returns a cell or "" when the row is shorter than the header.
func (t *Table) Cell(row, col int) string {
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// ParseRating coerces a cell into a number. Non-numeric and non-finite
// cells become NaN, the undefined marker.
func ParseRating(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
