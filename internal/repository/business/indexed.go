package business

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

// geoSearcher answers radius queries from the geo index.
type geoSearcher interface {
	GeoRadius(ctx context.Context, key string, center geo.Point, radiusMeters float64) ([]filter.Hit, error)
}

// IndexedStore serves proximity search from the geo index and everything
// else from the wrapped record store.
type IndexedStore struct {
	filter.Store
	geo geoSearcher
	key string
}

// NewIndexedStore wraps s so Near is answered by g.
func NewIndexedStore(s filter.Store, g geoSearcher, key string) *IndexedStore {
	return &IndexedStore{Store: s, geo: g, key: key}
}

// Near returns ids within maxDistanceMeters of center, nearest first.
func (s *IndexedStore) Near(ctx context.Context, center geo.Point, maxDistanceMeters float64) ([]filter.Hit, error) {
	hits, err := s.geo.GeoRadius(ctx, s.key, center, maxDistanceMeters)
	if err != nil {
		return nil, fmt.Errorf("geo radius: %w", err)
	}
	return hits, nil
}
