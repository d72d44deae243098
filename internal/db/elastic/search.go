package elastic

import (
	"context"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/directory/internal/db"
	"github.com/kailas-cloud/directory/internal/domain"
	"github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string    `json:"_id"`
			Source source    `json:"_source"`
			Sort   []any     `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

// NewQuery starts an unrestricted query.
func (s *Store) NewQuery() filter.Query {
	return &query{}
}

// Near returns records within maxDistanceMeters of center, nearest first.
func (s *Store) Near(ctx context.Context, center geo.Point, maxDistanceMeters float64) ([]filter.Hit, error) {
	origin := geoPoint{Lat: center.Lat, Lon: center.Lng}
	req := map[string]any{
		"_source": false,
		"size":    maxCandidates,
		"query": map[string]any{"bool": map[string]any{"filter": []any{
			map[string]any{"geo_distance": map[string]any{
				"distance": fmt.Sprintf("%fm", maxDistanceMeters),
				pointField: origin,
			}},
		}}},
		"sort": []any{
			map[string]any{"_geo_distance": map[string]any{
				pointField:      origin,
				"order":         "asc",
				"unit":          "m",
				"distance_type": "arc",
			}},
		},
	}

	var out searchResponse
	if err := s.search(ctx, req, &out); err != nil {
		return nil, err
	}

	hits := make([]filter.Hit, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		if len(h.Sort) == 0 {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("hit %s has no distance", h.ID)}
		}
		d, ok := h.Sort[0].(float64)
		if !ok {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("hit %s: distance %v is not a number", h.ID, h.Sort[0])}
		}
		hits = append(hits, filter.Hit{ID: h.ID, Distance: d})
	}
	return hits, nil
}

// Count returns the number of records matching q.
func (s *Store) Count(ctx context.Context, q filter.Query) (int, error) {
	eq, err := asQuery(q)
	if err != nil {
		return 0, err
	}
	body, err := encode(map[string]any{"query": eq.body()})
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}

	res, err := esapi.CountRequest{Index: []string{s.index}, Body: body}.Do(ctx, s.client)
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, &db.Error{Op: db.OpCount, Err: responseError(res)}
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := decode(res, &out); err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	return out.Count, nil
}

// Fetch returns one sorted page of records matching q.
func (s *Store) Fetch(
	ctx context.Context, q filter.Query, order []filter.SortField, skip, limit int,
) ([]filter.Record, error) {
	eq, err := asQuery(q)
	if err != nil {
		return nil, err
	}
	if skip < 0 || limit > maxResultWindow || skip > maxResultWindow-limit {
		page := 0
		if limit > 0 {
			page = skip / limit
		}
		return nil, &domain.ParameterError{Name: "page", Value: strconv.Itoa(page)}
	}
	req := map[string]any{
		"query":            eq.body(),
		"sort":             eq.sort(order),
		"from":             skip,
		"size":             limit,
		"track_total_hits": false,
	}

	var out searchResponse
	if err := s.search(ctx, req, &out); err != nil {
		return nil, err
	}

	recs := make([]filter.Record, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		fields := h.Source.Doc
		if fields == nil {
			fields = map[string]any{}
		}
		recs = append(recs, filter.Record{ID: h.ID, Fields: fields})
	}
	return recs, nil
}

func (s *Store) search(ctx context.Context, req map[string]any, out *searchResponse) error {
	body, err := encode(req)
	if err != nil {
		return &db.Error{Op: db.OpSearch, Err: err}
	}
	res, err := esapi.SearchRequest{Index: []string{s.index}, Body: body}.Do(ctx, s.client)
	if err != nil {
		return &db.Error{Op: db.OpSearch, Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return &db.Error{Op: db.OpSearch, Err: responseError(res)}
	}
	if err := decode(res, out); err != nil {
		return &db.Error{Op: db.OpSearch, Err: err}
	}
	return nil
}

func asQuery(q filter.Query) (*query, error) {
	eq, ok := q.(*query)
	if !ok {
		return nil, fmt.Errorf("%w: %T", db.ErrQueryType, q)
	}
	return eq, nil
}
