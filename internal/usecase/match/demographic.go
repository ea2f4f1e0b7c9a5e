package match

import (
	"github.com/somunicate/dbas/internal/domain/demographic"
	"github.com/somunicate/dbas/internal/domain/search/result"
)

// Filter keeps ranked entries whose mean liking and mean familiarity across
// groups meet both thresholds. Order is preserved. With no groups every entry
// passes unchanged, whatever the thresholds. Entries lacking a defined score
// for any one of the groups are dropped.
func Filter(ranked []Ranked, groups []demographic.GroupID, minLiking, minFamiliarity float64) []result.Result {
	out := make([]result.Result, 0, len(ranked))
	if len(groups) == 0 {
		for _, r := range ranked {
			out = append(out, result.New(r.Entry.ID(), r.Distance))
		}
		return out
	}

	for _, r := range ranked {
		agg, ok := demographic.Aggregate(r.Entry.Scores(), groups)
		if !ok {
			continue
		}
		if agg.Liking >= minLiking && agg.Familiarity >= minFamiliarity {
			out = append(out, result.New(r.Entry.ID(), r.Distance).WithScores(agg.Liking, agg.Familiarity))
		}
	}
	return out
}
