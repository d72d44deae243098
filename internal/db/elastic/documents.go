package elastic

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/directory/internal/db"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type source struct {
	ID       string         `json:"id"`
	Doc      map[string]any `json:"doc"`
	Point    *geoPoint      `json:"point,omitempty"`
	Modified time.Time      `json:"modified_at"`
}

// Put indexes a document, replacing any previous version. The write is
// refreshed before returning so it is visible to the next query.
func (s *Store) Put(ctx context.Context, doc db.Document) error {
	src := source{ID: doc.ID, Doc: doc.Fields, Modified: doc.Modified.UTC()}
	if src.Doc == nil {
		src.Doc = map[string]any{}
	}
	if src.Modified.IsZero() {
		src.Modified = time.Now().UTC()
	}
	if doc.Location != nil {
		src.Point = &geoPoint{Lat: doc.Location.Lat, Lon: doc.Location.Lng}
	}

	body, err := encode(src)
	if err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}
	res, err := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: doc.ID,
		Body:       body,
		Refresh:    "true",
	}.Do(ctx, s.client)
	if err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return &db.Error{Op: db.OpUpsert, Err: responseError(res)}
	}
	return nil
}

// Get returns a document by id.
func (s *Store) Get(ctx context.Context, id string) (db.Document, error) {
	res, err := esapi.GetRequest{Index: s.index, DocumentID: id}.Do(ctx, s.client)
	if err != nil {
		return db.Document{}, &db.Error{Op: db.OpGet, Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return db.Document{}, db.ErrKeyNotFound
	}
	if res.IsError() {
		return db.Document{}, &db.Error{Op: db.OpGet, Err: responseError(res)}
	}

	var body struct {
		Found  bool   `json:"found"`
		Source source `json:"_source"`
	}
	if err := decode(res, &body); err != nil {
		return db.Document{}, &db.Error{Op: db.OpGet, Err: err}
	}
	if !body.Found {
		return db.Document{}, db.ErrKeyNotFound
	}

	doc := db.Document{ID: id, Fields: body.Source.Doc, Modified: body.Source.Modified}
	if p := body.Source.Point; p != nil {
		doc.Location = &geo.Point{Lng: p.Lon, Lat: p.Lat}
	}
	return doc, nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := esapi.DeleteRequest{Index: s.index, DocumentID: id, Refresh: "true"}.Do(ctx, s.client)
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return db.ErrKeyNotFound
	}
	if res.IsError() {
		return &db.Error{Op: db.OpDelete, Err: fmt.Errorf("delete %s: %w", id, responseError(res))}
	}
	return nil
}
