package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/directory/internal/db"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

// Put inserts or replaces a document.
func (s *Store) Put(ctx context.Context, doc db.Document) error {
	fields := doc.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return &db.Error{Op: db.OpUpsert, Err: fmt.Errorf("marshal %s: %w", doc.ID, err)}
	}

	var lng, lat sql.NullFloat64
	if doc.Location != nil {
		lng = sql.NullFloat64{Float64: doc.Location.Lng, Valid: true}
		lat = sql.NullFloat64{Float64: doc.Location.Lat, Valid: true}
	}
	modified := doc.Modified
	if modified.IsZero() {
		modified = time.Now()
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (id, document, longitude, latitude, modified_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	document = EXCLUDED.document,
	longitude = EXCLUDED.longitude,
	latitude = EXCLUDED.latitude,
	modified_at = EXCLUDED.modified_at`, s.table)

	if _, err := s.db.ExecContext(ctx, stmt, doc.ID, data, lng, lat, modified.UTC()); err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}
	return nil
}

// Get returns a document by id.
func (s *Store) Get(ctx context.Context, id string) (db.Document, error) {
	stmt := fmt.Sprintf(`SELECT document, longitude, latitude, modified_at FROM %s WHERE id = $1`, s.table)

	var (
		data     []byte
		lng, lat sql.NullFloat64
		modified time.Time
	)
	err := s.db.QueryRowContext(ctx, stmt, id).Scan(&data, &lng, &lat, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Document{}, db.ErrKeyNotFound
	}
	if err != nil {
		return db.Document{}, &db.Error{Op: db.OpGet, Err: err}
	}

	doc := db.Document{ID: id, Modified: modified}
	if err := json.Unmarshal(data, &doc.Fields); err != nil {
		return db.Document{}, &db.Error{Op: db.OpGet, Err: fmt.Errorf("decode %s: %w", id, err)}
	}
	if lng.Valid && lat.Valid {
		doc.Location = &geo.Point{Lng: lng.Float64, Lat: lat.Float64}
	}
	return doc, nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, id string) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	res, err := s.db.ExecContext(ctx, stmt, id)
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	if n == 0 {
		return db.ErrKeyNotFound
	}
	return nil
}
