package business

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/directory/internal/db/memory"
	dombiz "github.com/kailas-cloud/directory/internal/domain/business"
	"github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

const testGeoKey = "dir:geo"

// mockGeo is an in-memory geo index.
type mockGeo struct {
	mu        sync.Mutex
	points    map[string]geo.Point
	addErr    error
	removeErr error
	radius    []filter.Hit
	radiusErr error
	lastKey   string
}

func newMockGeo() *mockGeo {
	return &mockGeo{points: map[string]geo.Point{}}
}

func (m *mockGeo) GeoAdd(_ context.Context, key, member string, p geo.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastKey = key
	if m.addErr != nil {
		return m.addErr
	}
	m.points[member] = p
	return nil
}

func (m *mockGeo) GeoRemove(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastKey = key
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.points, member)
	return nil
}

func (m *mockGeo) GeoRadius(_ context.Context, key string, _ geo.Point, _ float64) ([]filter.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastKey = key
	return m.radius, m.radiusErr
}

func (m *mockGeo) members() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.points))
	for k := range m.points {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var errBoom = errors.New("boom")

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repo, *memory.Store, *mockGeo) {
	t.Helper()
	s := memory.New()
	g := newMockGeo()
	return New(s, zap.NewNop()).WithGeoIndex(g, testGeoKey), s, g
}

func testBusiness(t *testing.T, id, owner string, loc *geo.Point) dombiz.Business {
	t.Helper()
	b, err := dombiz.New(id, owner, dombiz.Attributes{
		Name:     "Bakery " + id,
		Email:    []string{"hello@example.com"},
		Address:  dombiz.Address{Street: "Main", Zip: "10115", City: "Berlin"},
		Category: []string{"food"},
		Location: loc,
	}, testNow)
	if err != nil {
		t.Fatalf("new business: %v", err)
	}
	return b
}
