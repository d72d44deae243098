package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/directory/internal/db"
	"github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewStoreForTest(conn, "businesses"), mock
}

// ==========================
// Documents
// ==========================

func TestPut_Upserts(t *testing.T) {
	s, mock := newMockStore(t)
	modified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "businesses" (id, document, longitude, latitude, modified_at)`)).
		WithArgs("b1", []byte(`{"name":"Bakery"}`), 11.07, 49.45, modified).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Put(context.Background(), db.Document{
		ID:       "b1",
		Fields:   map[string]any{"name": "Bakery"},
		Location: &geo.Point{Lng: 11.07, Lat: 49.45},
		Modified: modified,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPut_WithoutLocation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO "businesses"`).
		WithArgs("b1", []byte(`{}`), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Put(context.Background(), db.Document{ID: "b1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_Found(t *testing.T) {
	s, mock := newMockStore(t)
	modified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"document", "longitude", "latitude", "modified_at"}).
		AddRow([]byte(`{"name":"Bakery","category":["bakery"]}`), 11.07, 49.45, modified)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT document, longitude, latitude, modified_at FROM "businesses" WHERE id = $1`)).
		WithArgs("b1").
		WillReturnRows(rows)

	doc, err := s.Get(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", doc.ID)
	assert.Equal(t, "Bakery", doc.Fields["name"])
	require.NotNil(t, doc.Location)
	assert.Equal(t, geo.Point{Lng: 11.07, Lat: 49.45}, *doc.Location)
	assert.True(t, modified.Equal(doc.Modified))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT document`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"document", "longitude", "latitude", "modified_at"}))

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"deleted", 1, nil},
		{"missing", 0, db.ErrKeyNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "businesses" WHERE id = $1`)).
				WithArgs("b1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := s.Delete(context.Background(), "b1")
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "businesses"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS "businesses_document_idx"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS "businesses_location_idx"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Error(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))

	err := s.Migrate(context.Background())
	var dbErr *db.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, db.OpMigrate, dbErr.Op)
}

// ==========================
// Filter queries
// ==========================

func TestNear(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "dist"}).
		AddRow("b2", 12.5).
		AddRow("b1", 830.0)
	mock.ExpectQuery(`SELECT id, dist FROM`).
		WithArgs(11.07, 49.45, 5000.0, geo.EarthRadiusMeters).
		WillReturnRows(rows)

	hits, err := s.Near(context.Background(), geo.Point{Lng: 11.07, Lat: 49.45}, 5000)
	require.NoError(t, err)
	assert.Equal(t, []filter.Hit{{ID: "b2", Distance: 12.5}, {ID: "b1", Distance: 830}}, hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNear_ClampsAsinArgument(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`asin(least(1.0, sqrt(`)).
		WithArgs(-179.99, -0.01, 20100000.0, geo.EarthRadiusMeters).
		WillReturnRows(sqlmock.NewRows([]string{"id", "dist"}).AddRow("antipode", 20015086.0))

	hits, err := s.Near(context.Background(), geo.Point{Lng: -179.99, Lat: -0.01}, 20100000)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "antipode", hits[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount_Unrestricted(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "businesses" WHERE TRUE`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.Count(context.Background(), s.NewQuery())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount_Error(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("connection reset"))

	_, err := s.Count(context.Background(), s.NewQuery().WhereEquals("category", "bakery"))
	var dbErr *db.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, db.OpCount, dbErr.Op)
}

func TestFetch(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "document"}).
		AddRow("b1", []byte(`{"name":"Alpha","category":["bakery"]}`)).
		AddRow("b2", []byte(`{"name":"Beta","category":["bakery"]}`))
	mock.ExpectQuery(`SELECT id, document FROM "businesses" WHERE EXISTS .+ ORDER BY .+ LIMIT \$4 OFFSET \$5`).
		WithArgs(sqlmock.AnyArg(), "bakery", sqlmock.AnyArg(), 10, 20).
		WillReturnRows(rows)

	q := s.NewQuery().WhereEquals("category", "bakery")
	order := []filter.SortField{
		{Field: filter.FieldModified, Direction: filter.Desc},
		{Field: filter.FieldID, Direction: filter.Asc},
	}
	recs, err := s.Fetch(context.Background(), q, order, 20, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b1", recs[0].ID)
	assert.Equal(t, "Alpha", recs[0].Fields["name"])
	assert.Nil(t, recs[0].Distance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetch_Empty(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, document`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document"}))

	recs, err := s.Fetch(context.Background(), s.NewQuery(), nil, 0, 25)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

type foreignQuery struct{ filter.Query }

func TestCount_ForeignQuery(t *testing.T) {
	s, _ := newMockStore(t)
	_, err := s.Count(context.Background(), foreignQuery{})
	assert.ErrorIs(t, err, db.ErrQueryType)
}

// ==========================
// SQL rendering
// ==========================

func TestWhere_Rendering(t *testing.T) {
	tests := []struct {
		name     string
		build    func(q filter.Query) filter.Query
		contains []string
		args     int
	}{
		{
			name:     "unrestricted",
			build:    func(q filter.Query) filter.Query { return q },
			contains: []string{"TRUE"},
		},
		{
			name:     "equals nested path",
			build:    func(q filter.Query) filter.Query { return q.WhereEquals("address.zip", "90409") },
			contains: []string{"document #> $1::text[]", "e.v #>> '{}' = $2"},
			args:     2,
		},
		{
			name:     "in",
			build:    func(q filter.Query) filter.Query { return q.WhereIn("category", []string{"a", "b"}) },
			contains: []string{"= ANY($2)"},
			args:     2,
		},
		{
			name:     "numeric lte",
			build:    func(q filter.Query) filter.Query { return q.WhereLte("rating", "4.5") },
			contains: []string{"jsonb_typeof(e.v) = 'number'", "::numeric <= $2"},
			args:     2,
		},
		{
			name:     "text gte",
			build:    func(q filter.Query) filter.Query { return q.WhereGte("modified", "2024-01-01") },
			contains: []string{"jsonb_typeof(e.v) = 'string'", ">= $2"},
			args:     2,
		},
		{
			name:     "matches",
			build:    func(q filter.Query) filter.Query { return q.WhereMatches("name", filter.NewPattern("Brot")) },
			contains: []string{"position(lower($2::text) IN lower(e.v #>> '{}')) > 0"},
			args:     2,
		},
		{
			name:     "id column",
			build:    func(q filter.Query) filter.Query { return q.WhereEquals("id", "b1") },
			contains: []string{"id = $1"},
			args:     1,
		},
		{
			name: "candidate restriction first",
			build: func(q filter.Query) filter.Query {
				return q.WhereEquals("category", "bakery").WhereIDIn([]string{"b2", "b1"})
			},
			contains: []string{"id = ANY($1) AND EXISTS"},
			args:     3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.build(&query{}).(*query)
			b := &binder{}
			sql := q.where(b)
			for _, want := range tt.contains {
				assert.Contains(t, sql, want)
			}
			assert.Len(t, b.args, tt.args)
		})
	}
}

func TestOrderBy_Rendering(t *testing.T) {
	q := (&query{}).WhereIDIn([]string{"b2", "b1"}).(*query)
	b := &binder{}
	got := q.orderBy(b, []filter.SortField{
		{Field: filter.FieldDistance, Direction: filter.Asc},
		{Field: filter.FieldID, Direction: filter.Asc},
	})
	assert.Equal(t, "array_position($1::text[], id) ASC NULLS FIRST, id ASC NULLS FIRST", got)
	assert.Len(t, b.args, 1)

	unrestricted := &query{}
	assert.Equal(t, "id ASC", unrestricted.orderBy(&binder{}, []filter.SortField{
		{Field: filter.FieldDistance, Direction: filter.Desc},
	}))
}
