package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/directory/internal/db"
	"github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

// NewQuery starts an unrestricted query.
func (s *Store) NewQuery() filter.Query {
	return &query{}
}

// Near returns records within maxDistanceMeters of center, nearest first.
// Distance is the haversine great-circle distance computed in SQL. The asin
// argument is clamped to 1 so rounding near antipodes stays in its domain.
func (s *Store) Near(ctx context.Context, center geo.Point, maxDistanceMeters float64) ([]filter.Hit, error) {
	stmt := fmt.Sprintf(`SELECT id, dist FROM (
	SELECT id, 2 * $4::float8 * asin(least(1.0, sqrt(
		power(sin(radians(latitude - $2::float8) / 2), 2) +
		cos(radians($2::float8)) * cos(radians(latitude)) * power(sin(radians(longitude - $1::float8) / 2), 2)
	))) AS dist
	FROM %s
	WHERE latitude IS NOT NULL AND longitude IS NOT NULL
) AS candidates
WHERE dist <= $3::float8
ORDER BY dist, id`, s.table)

	rows, err := s.db.QueryContext(ctx, stmt, center.Lng, center.Lat, maxDistanceMeters, geo.EarthRadiusMeters)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	defer rows.Close()

	var hits []filter.Hit
	for rows.Next() {
		var h filter.Hit
		if err := rows.Scan(&h.ID, &h.Distance); err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return hits, nil
}

// Count returns the number of records matching q.
func (s *Store) Count(ctx context.Context, q filter.Query) (int, error) {
	sq, err := asQuery(q)
	if err != nil {
		return 0, err
	}
	b := &binder{}
	stmt := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.table, sq.where(b))

	var n int
	if err := s.db.QueryRowContext(ctx, stmt, b.args...).Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	return n, nil
}

// Fetch returns one sorted page of records matching q.
func (s *Store) Fetch(
	ctx context.Context, q filter.Query, order []filter.SortField, skip, limit int,
) ([]filter.Record, error) {
	sq, err := asQuery(q)
	if err != nil {
		return nil, err
	}
	b := &binder{}
	where := sq.where(b)
	orderBy := sq.orderBy(b, order)
	stmt := fmt.Sprintf(`SELECT id, document FROM %s WHERE %s ORDER BY %s LIMIT %s OFFSET %s`,
		s.table, where, orderBy, b.bind(limit), b.bind(skip))

	rows, err := s.db.QueryContext(ctx, stmt, b.args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := []filter.Record{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		rec := filter.Record{ID: id}
		if err := json.Unmarshal(data, &rec.Fields); err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: fmt.Errorf("decode %s: %w", id, err)}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

func asQuery(q filter.Query) (*query, error) {
	sq, ok := q.(*query)
	if !ok {
		return nil, fmt.Errorf("%w: %T", db.ErrQueryType, q)
	}
	return sq, nil
}
