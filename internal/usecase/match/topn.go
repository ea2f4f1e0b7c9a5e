package match

import (
	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/search/result"
)

// SelectTopN returns the first n filtered results without reordering.
// A shorter input is returned whole with a PartialResultWarning.
func SelectTopN(filtered []result.Result, n int) result.Selection {
	if len(filtered) >= n {
		return result.Selection{Results: filtered[:n:n]}
	}
	return result.Selection{
		Results: filtered,
		Warning: &domain.PartialResultWarning{Requested: n, Returned: len(filtered)},
	}
}
