package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/somunicate/dbas/internal/domain/catalog"
	"github.com/somunicate/dbas/internal/domain/demographic"
	"github.com/somunicate/dbas/internal/domain/dimension"
	healthuc "github.com/somunicate/dbas/internal/usecase/health"
	matchuc "github.com/somunicate/dbas/internal/usecase/match"
	referenceuc "github.com/somunicate/dbas/internal/usecase/reference"
)

// --- Mocks ---

type mockSource struct {
	ds  catalog.Dataset
	err error
}

func (m *mockSource) Load(_ context.Context) (catalog.Dataset, error) { return m.ds, m.err }

func testDataset(correlation string) catalog.Dataset {
	return catalog.Dataset{
		Ratings: catalog.Table{
			Source: "ratings.csv",
			Header: []string{"sound", "positivity", "urgency_reminder"},
			Rows: [][]string{
				{"s1", "0.5", "0.1"},
				{"s2", "-0.2", "0.4"},
				{"s3", "0.9", "-0.6"},
				{"s4", "0.1", "n/a"},
			},
		},
		Schema: catalog.Schema{Dimensions: []dimension.Dimension{"positivity", "urgency_reminder"}},
		Correlations: catalog.Table{
			Source: "correlations.csv",
			Header: []string{"", "positivity", "urgency_reminder"},
			Rows: [][]string{
				{"positivity", "1", correlation},
				{"urgency_reminder", correlation, "1"},
			},
		},
		Groups: []demographic.Group{
			{ID: 1, Gender: "Female", Migration: "No", Age: demographic.AgeGroup1},
			{ID: 2, Gender: "Male", Migration: "No", Age: demographic.AgeGroup1},
		},
		Scores: []demographic.SoundScores{
			{Sound: "s1", Group: 1, Scores: demographic.Scores{Liking: 80, Familiarity: 60}},
			{Sound: "s1", Group: 2, Scores: demographic.Scores{Liking: 60, Familiarity: 40}},
			{Sound: "s3", Group: 1, Scores: demographic.Scores{Liking: 90, Familiarity: 90}},
		},
	}
}

type testEnv struct {
	source    *mockSource
	reference *referenceuc.Service
	handler   http.Handler
}

// newTestEnv wires real services over an in-memory source.
// load=false leaves the catalog unloaded.
func newTestEnv(t *testing.T, correlation string, load bool, opts Options) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	src := &mockSource{ds: testDataset(correlation)}
	ref := referenceuc.New(src, logger)
	if load {
		if _, err := ref.Load(context.Background()); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	matcher := matchuc.New(ref, logger)
	health := healthuc.New(ref, nil)
	srv := NewServer(matcher, ref, health, opts, logger)
	return &testEnv{source: src, reference: ref, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func ptr[T any](v T) *T { return &v }
