package catalog

import "github.com/somunicate/dbas/internal/domain/demographic"

// Dataset bundles the raw reference inputs of one snapshot.
// Groups and Scores are optional; without them no demographic filtering is possible.
type Dataset struct {
	Ratings      Table
	Schema       Schema
	Correlations Table
	Groups       []demographic.Group
	Scores       []demographic.SoundScores
}
