package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/directory/internal/db"
	"github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

// GeoAdd stores member at p, replacing any previous position.
func (s *Store) GeoAdd(ctx context.Context, key, member string, p geo.Point) error {
	cmd := s.b().Arbitrary("GEOADD").Keys(key).
		Args(formatFloat(p.Lng), formatFloat(p.Lat), member).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpGeoAdd, Err: err}
	}
	return nil
}

// GeoRemove drops member from the index. Missing members are not an error.
func (s *Store) GeoRemove(ctx context.Context, key, member string) error {
	cmd := s.b().Zrem().Key(key).Member(member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpGeoRemove, Err: err}
	}
	return nil
}

// GeoRadius returns members within radiusMeters of center, nearest first,
// with their distance in meters.
func (s *Store) GeoRadius(
	ctx context.Context, key string, center geo.Point, radiusMeters float64,
) ([]filter.Hit, error) {
	cmd := s.b().Arbitrary("GEOSEARCH").Keys(key).
		Args("FROMLONLAT", formatFloat(center.Lng), formatFloat(center.Lat),
			"BYRADIUS", formatFloat(radiusMeters), "m", "ASC", "WITHDIST").
		Build()
	items, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpGeoSearch, Err: err}
	}

	hits := make([]filter.Hit, 0, len(items))
	for i, item := range items {
		pair, err := item.ToArray()
		if err != nil || len(pair) < 2 {
			return nil, &db.Error{Op: db.OpGeoSearch, Err: fmt.Errorf("unexpected reply at %d", i)}
		}
		id, err := pair[0].ToString()
		if err != nil {
			return nil, &db.Error{Op: db.OpGeoSearch, Err: fmt.Errorf("member at %d: %w", i, err)}
		}
		dist, err := pair[1].AsFloat64()
		if err != nil {
			return nil, &db.Error{Op: db.OpGeoSearch, Err: fmt.Errorf("distance of %s: %w", id, err)}
		}
		hits = append(hits, filter.Hit{ID: id, Distance: dist})
	}
	return hits, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
