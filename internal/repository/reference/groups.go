package reference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/catalog"
	"github.com/somunicate/dbas/internal/domain/demographic"
)

// Group membership table columns.
const (
	colGroupTableID = "Group ID"
	colGender       = "Gender"
	colMigration    = "Migration Background"
	colAge          = "Age"
)

func parseGroups(t catalog.Table) ([]demographic.Group, error) {
	cols := make([]int, 4)
	for i, name := range []string{colGroupTableID, colGender, colMigration, colAge} {
		idx, ok := t.ColumnIndex(name)
		if !ok {
			return nil, domain.NewDataFormatError(t.Source, name, "group column missing")
		}
		cols[i] = idx
	}

	groups := make([]demographic.Group, 0, len(t.Rows))
	for row := range t.Rows {
		cell := strings.TrimSpace(t.Cell(row, cols[0]))
		id, err := strconv.Atoi(cell)
		if err != nil {
			return nil, domain.NewDataFormatError(t.Source, colGroupTableID,
				fmt.Sprintf("row %d: group id %q is not an integer", row+1, cell))
		}
		groups = append(groups, demographic.Group{
			ID:        demographic.GroupID(id),
			Gender:    strings.TrimSpace(t.Cell(row, cols[1])),
			Migration: strings.TrimSpace(t.Cell(row, cols[2])),
			Age:       strings.TrimSpace(t.Cell(row, cols[3])),
		})
	}
	return groups, nil
}

func groupIDs(groups []demographic.Group) []demographic.GroupID {
	ids := make([]demographic.GroupID, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids
}
