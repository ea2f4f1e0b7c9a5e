package match

import (
	"testing"
	"time"

	"github.com/somunicate/dbas/internal/domain/catalog"
	"github.com/somunicate/dbas/internal/domain/demographic"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/search/result"
	"github.com/somunicate/dbas/internal/domain/snapshot"
)

// oneDimCatalog holds ratings 0.5, -0.2, 0.9 on dimension "a".
func oneDimCatalog(t *testing.T, scores ...demographic.SoundScores) *catalog.Catalog {
	t.Helper()
	tb := catalog.Table{
		Source: "ratings.csv",
		Header: []string{"sound", "a"},
		Rows:   [][]string{{"s1", "0.5"}, {"s2", "-0.2"}, {"s3", "0.9"}},
	}
	c, err := catalog.Load(tb, catalog.Schema{Dimensions: []dimension.Dimension{"a"}}, scores)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func twoDimDataset(correlation string) catalog.Dataset {
	return catalog.Dataset{
		Ratings: catalog.Table{
			Source: "ratings.csv",
			Header: []string{"sound", "a", "b"},
			Rows: [][]string{
				{"s1", "0.5", "0.1"},
				{"s2", "-0.2", "0.4"},
				{"s3", "0.9", "-0.6"},
				{"s4", "0.1", "n/a"},
			},
		},
		Schema: catalog.Schema{Dimensions: []dimension.Dimension{"a", "b"}},
		Correlations: catalog.Table{
			Source: "correlations.csv",
			Header: []string{"", "a", "b"},
			Rows:   [][]string{{"a", "1", correlation}, {"b", correlation, "1"}},
		},
		Groups: []demographic.Group{
			{ID: 1, Gender: "Female", Age: demographic.AgeGroup1},
			{ID: 2, Gender: "Male", Age: demographic.AgeGroup1},
		},
		Scores: []demographic.SoundScores{
			{Sound: "s1", Group: 1, Scores: demographic.Scores{Liking: 80, Familiarity: 60}},
			{Sound: "s1", Group: 2, Scores: demographic.Scores{Liking: 60, Familiarity: 40}},
			{Sound: "s2", Group: 1, Scores: demographic.Scores{Liking: 20, Familiarity: 90}},
			{Sound: "s3", Group: 1, Scores: demographic.Scores{Liking: 90, Familiarity: 90}},
		},
	}
}

func testSnapshot(t *testing.T, correlation string) *snapshot.Snapshot {
	t.Helper()
	s, err := snapshot.Build(twoDimDataset(correlation), time.Now())
	if err != nil {
		t.Fatalf("snapshot.Build: %v", err)
	}
	return s
}

func rankedIDs(ranked []Ranked) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Entry.ID()
	}
	return out
}

func resultIDs(results []result.Result) []string {
	out := make([]string, len(results))
	for i := range results {
		out[i] = results[i].Sound()
	}
	return out
}
