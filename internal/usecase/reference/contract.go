package reference

import (
	"context"

	"github.com/somunicate/dbas/internal/domain/catalog"
)

// Source reads the raw reference inputs.
type Source interface {
	Load(ctx context.Context) (catalog.Dataset, error)
}
