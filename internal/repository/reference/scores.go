package reference

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/catalog"
	"github.com/somunicate/dbas/internal/domain/demographic"
)

// Score table layouts.
const (
	// LayoutLong has one row per sound and group: sound, group_id, liking, familiarity.
	LayoutLong = "long"
	// LayoutWide has one row per sound with liking in column "<id>" and
	// familiarity in column "<id+offset>".
	LayoutWide = "wide"
)

// Score scales of the source data. Scores are always held in percent.
const (
	ScalePercent  = "percent"
	ScaleFraction = "fraction"
)

// Long layout column names.
const (
	colGroupID     = "group_id"
	colLiking      = "liking"
	colFamiliarity = "familiarity"
)

// DefaultFamiliarityOffset is the distance between a group's liking and
// familiarity columns in the wide layout.
const DefaultFamiliarityOffset = 12

// ScoreFormat describes how a score table is laid out.
type ScoreFormat struct {
	Layout            string
	Scale             string
	IDColumn          string
	FamiliarityOffset int
}

func (f ScoreFormat) factor() (float64, error) {
	switch f.Scale {
	case "", ScalePercent:
		return 1, nil
	case ScaleFraction:
		return 100, nil
	default:
		return 0, fmt.Errorf("unknown score scale %q", f.Scale)
	}
}

func (f ScoreFormat) idColumn() string {
	if f.IDColumn == "" {
		return catalog.DefaultIDColumn
	}
	return f.IDColumn
}

// parseScores converts a score table into per-sound-per-group scores.
// groups lists the known group ids; the wide layout reads one column pair per id.
func parseScores(t catalog.Table, f ScoreFormat, groups []demographic.GroupID) ([]demographic.SoundScores, error) {
	factor, err := f.factor()
	if err != nil {
		return nil, err
	}
	switch f.Layout {
	case "", LayoutLong:
		return parseLongScores(t, f.idColumn(), factor)
	case LayoutWide:
		offset := f.FamiliarityOffset
		if offset <= 0 {
			offset = DefaultFamiliarityOffset
		}
		return parseWideScores(t, f.idColumn(), offset, factor, groups)
	default:
		return nil, fmt.Errorf("unknown score layout %q", f.Layout)
	}
}

func parseLongScores(t catalog.Table, idColumn string, factor float64) ([]demographic.SoundScores, error) {
	cols := make(map[string]int, 4)
	for _, name := range []string{idColumn, colGroupID, colLiking, colFamiliarity} {
		idx, ok := t.ColumnIndex(name)
		if !ok {
			return nil, domain.NewDataFormatError(t.Source, name, "score column missing")
		}
		cols[name] = idx
	}

	out := make([]demographic.SoundScores, 0, len(t.Rows))
	for row := range t.Rows {
		cell := strings.TrimSpace(t.Cell(row, cols[colGroupID]))
		id, err := strconv.Atoi(cell)
		if err != nil {
			return nil, domain.NewDataFormatError(t.Source, colGroupID,
				fmt.Sprintf("row %d: group id %q is not an integer", row+1, cell))
		}
		out = append(out, demographic.SoundScores{
			Sound: strings.TrimSpace(t.Cell(row, cols[idColumn])),
			Group: demographic.GroupID(id),
			Scores: demographic.Scores{
				Liking:      scale(t.Cell(row, cols[colLiking]), factor),
				Familiarity: scale(t.Cell(row, cols[colFamiliarity]), factor),
			},
		})
	}
	return out, nil
}

func parseWideScores(
	t catalog.Table, idColumn string, offset int, factor float64, groups []demographic.GroupID,
) ([]demographic.SoundScores, error) {
	idCol, ok := t.ColumnIndex(idColumn)
	if !ok {
		return nil, domain.NewDataFormatError(t.Source, idColumn, "identifier column missing")
	}
	if len(groups) == 0 {
		groups = wideGroupIDs(t.Header, offset)
	}

	type pair struct {
		group             demographic.GroupID
		likingCol, famCol int
	}
	pairs := make([]pair, 0, len(groups))
	for _, g := range groups {
		likingName := strconv.Itoa(int(g))
		famName := strconv.Itoa(int(g) + offset)
		lc, ok := t.ColumnIndex(likingName)
		if !ok {
			return nil, domain.NewDataFormatError(t.Source, likingName, "liking column missing")
		}
		fc, ok := t.ColumnIndex(famName)
		if !ok {
			return nil, domain.NewDataFormatError(t.Source, famName, "familiarity column missing")
		}
		pairs = append(pairs, pair{group: g, likingCol: lc, famCol: fc})
	}

	out := make([]demographic.SoundScores, 0, len(t.Rows)*len(pairs))
	for row := range t.Rows {
		sound := strings.TrimSpace(t.Cell(row, idCol))
		for _, p := range pairs {
			out = append(out, demographic.SoundScores{
				Sound: sound,
				Group: p.group,
				Scores: demographic.Scores{
					Liking:      scale(t.Cell(row, p.likingCol), factor),
					Familiarity: scale(t.Cell(row, p.famCol), factor),
				},
			})
		}
	}
	return out, nil
}

// wideGroupIDs infers group ids from numeric headers in [1, offset].
func wideGroupIDs(header []string, offset int) []demographic.GroupID {
	var ids []demographic.GroupID
	for _, h := range header {
		n, err := strconv.Atoi(strings.TrimSpace(h))
		if err == nil && n >= 1 && n <= offset {
			ids = append(ids, demographic.GroupID(n))
		}
	}
	return ids
}

func scale(cell string, factor float64) float64 {
	v := catalog.ParseRating(cell)
	if math.IsNaN(v) {
		return v
	}
	return v * factor
}
