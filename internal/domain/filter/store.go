package filter

import (
	"context"

	"github.com/kailas-cloud/directory/internal/domain/geo"
)

// Hit is a proximity search match.
type Hit struct {
	ID       string
	Distance float64 // meters
}

// Query is a conjunctive predicate builder owned by one Store.
// Builders return the handle so calls can be chained.
type Query interface {
	WhereEquals(field, value string) Query
	WhereLte(field, value string) Query
	WhereGte(field, value string) Query
	WhereIn(field string, values []string) Query
	WhereMatches(field string, pattern Pattern) Query
	// WhereIDIn restricts the query to ids. Their order is the distance
	// order used when sorting by FieldDistance.
	WhereIDIn(ids []string) Query
}

// Store is a record collection that supports predicate composition,
// proximity search, counting, sorting and pagination.
type Store interface {
	NewQuery() Query
	Near(ctx context.Context, center geo.Point, maxDistanceMeters float64) ([]Hit, error)
	Count(ctx context.Context, q Query) (int, error)
	Fetch(ctx context.Context, q Query, sort []SortField, skip, limit int) ([]Record, error)
}
