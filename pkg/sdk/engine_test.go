package dbas

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/snapshot"
	referencerepo "github.com/somunicate/dbas/internal/repository/reference"
)

var testDimensions = []string{"positivity", "urgency_reminder"}

func testTables(correlation string) Tables {
	return Tables{
		Ratings: Table{
			Header: []string{"sound", "positivity", "urgency_reminder"},
			Rows: [][]string{
				{"s1", "0.5", "0.1"},
				{"s2", "-0.2", "0.4"},
				{"s3", "0.9", "-0.6"},
				{"s4", "0.1", "n/a"},
			},
		},
		Correlations: Table{
			Header: []string{"", "positivity", "urgency_reminder"},
			Rows: [][]string{
				{"positivity", "1", correlation},
				{"urgency_reminder", correlation, "1"},
			},
		},
		Groups: Table{
			Header: []string{"Group ID", "Gender", "Migration Background", "Age"},
			Rows: [][]string{
				{"1", "Female", "No", "Age Group 1"},
				{"2", "Male", "No", "Age Group 1"},
			},
		},
		Scores: Table{
			Header: []string{"sound", "group_id", "liking", "familiarity"},
			Rows: [][]string{
				{"s1", "1", "80", "60"},
				{"s1", "2", "60", "40"},
				{"s3", "1", "90", "90"},
			},
		},
	}
}

func newTestEngine(t *testing.T, correlation string, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithTables(testTables(correlation)), WithDimensions(testDimensions...)}, opts...)
	e, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func mustSnapshot(t *testing.T, correlation string) *snapshot.Snapshot {
	t.Helper()
	src := referencerepo.NewMemorySource(toInternalTables(testTables(correlation)), referencerepo.Options{
		Dimensions: []dimension.Dimension{"positivity", "urgency_reminder"},
	})
	ds, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	snap, err := snapshot.Build(ds, time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return snap
}

func positivity(v float64) []Target {
	return []Target{{Dimension: "positivity", Value: v}}
}

func sounds(sel Selection) []string {
	out := make([]string, len(sel.Results))
	for i, r := range sel.Results {
		out[i] = r.Sound
	}
	return out
}

func TestMatch_Euclidean(t *testing.T) {
	e := newTestEngine(t, "0.5")

	sel, err := e.Match(context.Background(), Query{Targets: positivity(0.9), TopN: 2})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got := sounds(sel); !slices.Equal(got, []string{"s3", "s1"}) {
		t.Errorf("unexpected ranking %v", got)
	}
	if sel.Results[0].Distance != 0 {
		t.Errorf("exact match must have distance 0, got %v", sel.Results[0].Distance)
	}
	if sel.Results[0].HasScores {
		t.Error("scores must be absent without a group selection")
	}
	if sel.Partial != nil {
		t.Errorf("unexpected partial %+v", sel.Partial)
	}
}

func TestMatch_DefaultTopN(t *testing.T) {
	e := newTestEngine(t, "0.5", WithDefaultTopN(1))

	sel, err := e.Match(context.Background(), Query{Targets: positivity(0.9)})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(sel.Results) != 1 {
		t.Errorf("expected 1 result, got %d", len(sel.Results))
	}
}

func TestMatch_DemographicsPartial(t *testing.T) {
	e := newTestEngine(t, "0.5")

	sel, err := e.Match(context.Background(), Query{
		Targets:      positivity(0.9),
		Demographics: Demographics{Genders: []string{"Female"}},
		TopN:         3,
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got := sounds(sel); !slices.Equal(got, []string{"s3", "s1"}) {
		t.Errorf("unexpected selection %v", got)
	}
	if !sel.Results[0].HasScores || sel.Results[0].Liking != 90 {
		t.Errorf("expected liking 90 for s3, got %+v", sel.Results[0])
	}
	if sel.Partial == nil || sel.Partial.Requested != 3 || sel.Partial.Returned != 2 {
		t.Errorf("unexpected partial %+v", sel.Partial)
	}
}

func TestMatch_Errors(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want error
	}{
		{"no targets", Query{}, ErrEmptyDimensionSet},
		{"unknown dimension", Query{Targets: []Target{{Dimension: "loudness"}}}, ErrUnknownDimension},
		{"target out of range", Query{Targets: positivity(1.5)}, ErrInvalidQuery},
		{"top n too large", Query{Targets: positivity(0), TopN: 11}, ErrInvalidQuery},
		{"unknown metric", Query{Targets: positivity(0), Metric: "cosine"}, ErrInvalidQuery},
		{"unknown group", Query{Targets: positivity(0), Groups: []int{9}}, ErrUnknownGroup},
		{"demographics match nothing", Query{
			Targets:      positivity(0),
			Demographics: Demographics{Genders: []string{"Diverse"}},
		}, ErrUnknownGroup},
		{"groups and demographics", Query{
			Targets:      positivity(0),
			Groups:       []int{1},
			Demographics: Demographics{Genders: []string{"Female"}},
		}, ErrInvalidQuery},
	}
	e := newTestEngine(t, "0.5")
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Match(context.Background(), tc.q)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMatch_MahalanobisUnavailable(t *testing.T) {
	e := newTestEngine(t, "1")

	_, err := e.Match(context.Background(), Query{Targets: positivity(0), Metric: Mahalanobis})
	if !errors.Is(err, ErrSingularMatrix) {
		t.Fatalf("expected ErrSingularMatrix, got %v", err)
	}
	if _, err := e.Match(context.Background(), Query{Targets: positivity(0)}); err != nil {
		t.Errorf("euclidean must still work: %v", err)
	}
}

func TestCompare(t *testing.T) {
	e := newTestEngine(t, "1")

	outcomes, err := e.Compare(context.Background(), Query{Targets: positivity(0.9), TopN: 2})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected an outcome per metric, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		switch o.Metric {
		case Euclidean:
			if o.Err != nil || !slices.Equal(sounds(o.Selection), []string{"s3", "s1"}) {
				t.Errorf("euclidean outcome %+v", o)
			}
		case Mahalanobis:
			if !errors.Is(o.Err, ErrSingularMatrix) {
				t.Errorf("expected ErrSingularMatrix, got %v", o.Err)
			}
		default:
			t.Errorf("unexpected metric %q", o.Metric)
		}
	}

	selected, err := e.Compare(context.Background(), Query{Targets: positivity(0.9)}, Euclidean)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(selected) != 1 || selected[0].Metric != Euclidean {
		t.Errorf("expected only euclidean, got %+v", selected)
	}
}

func TestDimensionsAndGroups(t *testing.T) {
	e := newTestEngine(t, "0.5")

	dims, err := e.Dimensions()
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}
	if len(dims) != 2 || dims[0].Key != "positivity" || dims[1].Key != "urgency_reminder" {
		t.Errorf("unexpected dimensions %+v", dims)
	}
	if dims[0].Label == "" {
		t.Error("known dimension must carry a label")
	}

	groups, err := e.Groups()
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(groups) != 2 || groups[0].ID != 1 || groups[0].AgeRange != "Ages 18-35" {
		t.Errorf("unexpected groups %+v", groups)
	}
}

func TestNew_DataFormat(t *testing.T) {
	tables := testTables("0.5")
	tables.Ratings.Header[0] = "file"

	_, err := New(context.Background(), WithTables(tables), WithDimensions(testDimensions...))
	if !errors.Is(err, ErrDataFormat) {
		t.Fatalf("expected ErrDataFormat, got %v", err)
	}
	var dfe *DataFormatError
	if !errors.As(err, &dfe) || dfe.Column != "sound" {
		t.Errorf("expected the missing identifier column to be reported, got %v", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReload_FromFiles(t *testing.T) {
	dir := t.TempDir()
	files := Files{
		Ratings: writeFile(t, dir, "ratings.csv", strings.Join([]string{
			"sound,positivity,urgency_reminder",
			"s1,0.5,0.1",
			"s2,-0.2,0.4",
			"s3,0.9,-0.6",
		}, "\n")),
		Correlations: writeFile(t, dir, "correlations.csv", strings.Join([]string{
			";positivity;urgency_reminder",
			"positivity;1;0.6",
			"urgency_reminder;0.6;1",
		}, "\n")),
	}

	reg := prometheus.NewRegistry()
	e, err := New(context.Background(), WithFiles(files), WithDimensions(testDimensions...), WithPrometheus(reg))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	before, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if before.Entries != 3 || !before.MahalanobisAvailable {
		t.Errorf("unexpected snapshot %+v", before)
	}

	writeFile(t, dir, "ratings.csv", "sound,positivity,urgency_reminder\ns1,0.5,0.1\ns2,-0.2,0.4\ns3,0.9,-0.6\ns4,0.1,0.3\n")
	after, err := e.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if after.Entries != 4 || after.Version == before.Version {
		t.Errorf("reload must publish a new snapshot: before %+v, after %+v", before, after)
	}

	writeFile(t, dir, "ratings.csv", "file,positivity\nx,0\n")
	if _, err := e.Reload(context.Background()); !errors.Is(err, ErrDataFormat) {
		t.Fatalf("expected ErrDataFormat, got %v", err)
	}
	if cur, _ := e.Snapshot(); cur.Version != after.Version {
		t.Error("failed reload must keep the previous snapshot")
	}

	if n, err := testutil.GatherAndCount(reg, "dbas_engine_operations_total"); err != nil || n != 2 {
		t.Errorf("expected ok and error reload samples, got %d (%v)", n, err)
	}
}

func TestHealth_Loaded(t *testing.T) {
	e := newTestEngine(t, "0.5")

	h := e.Health(context.Background())
	if h.Status != "ok" || h.Entries != 4 {
		t.Errorf("unexpected health %+v", h)
	}
	if h.Checks["catalog"] != "ok" || h.Checks["mahalanobis"] != "ok" {
		t.Errorf("unexpected checks %v", h.Checks)
	}
}
