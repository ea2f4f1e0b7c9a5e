package matchcache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/somunicate/dbas/internal/db"
	"github.com/somunicate/dbas/internal/domain/dimension"
	"github.com/somunicate/dbas/internal/domain/search/metric"
	"github.com/somunicate/dbas/internal/domain/search/query"
	"github.com/somunicate/dbas/internal/domain/search/result"
	"github.com/somunicate/dbas/internal/domain/snapshot"
)

// --- Mocks ---

type mockMatcher struct {
	sel   result.Selection
	err   error
	calls int
}

func (m *mockMatcher) Match(_ context.Context, _ query.Query) (result.Selection, error) {
	m.calls++
	return m.sel, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data  map[string][]byte
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn func(ctx context.Context, prefix string) (int, error)
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
	return nil
}

func (m *mockKVStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if m.delFn != nil {
		return m.delFn(ctx, prefix)
	}
	n := 0
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

type mockSnapshots struct {
	snap *snapshot.Snapshot
	err  error
}

func (m *mockSnapshots) Current() (*snapshot.Snapshot, error) { return m.snap, m.err }

func newTestCachedMatcher(t *testing.T, inner *mockMatcher) (*CachedMatcher, *mockKVStore, *mockSnapshots) {
	t.Helper()
	ms := &mockKVStore{}
	snaps := &mockSnapshots{snap: &snapshot.Snapshot{Version: uuid.New()}}
	cm := New(inner, snaps, ms, time.Minute, "test:", nil, zap.NewNop())
	return cm, ms, snaps
}

func testQuery(t *testing.T, m metric.Metric) query.Query {
	t.Helper()
	q, err := query.New([]dimension.Dimension{"urgency"}, []float64{0.5}, m, nil, 0, 0, 3)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}
