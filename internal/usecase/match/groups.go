package match

import (
	"fmt"

	"github.com/somunicate/dbas/internal/domain"
	"github.com/somunicate/dbas/internal/domain/demographic"
)

// ResolveGroups turns a request's group selection into group ids.
// Explicit ids and demographic criteria are mutually exclusive. Criteria are
// resolved against dir and must match at least one group, otherwise the
// empty result would silently lift the restriction.
func ResolveGroups(dir *demographic.Directory, ids []demographic.GroupID, crit demographic.Criteria) ([]demographic.GroupID, error) {
	if len(ids) > 0 {
		if !crit.IsEmpty() {
			return nil, fmt.Errorf("%w: groups and demographics are mutually exclusive", domain.ErrInvalidQuery)
		}
		return ids, nil
	}
	if crit.IsEmpty() {
		return nil, nil
	}
	resolved := dir.Resolve(crit)
	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: demographics match no group", domain.ErrUnknownGroup)
	}
	return resolved, nil
}
