// Package memory is an in-process RecordStore for local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/directory/internal/db"
	"github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

var _ db.RecordStore = (*Store)(nil)

type entry struct {
	doc    db.Document
	fields map[string]any // JSON-normalized copy of doc.Fields
}

// Store keeps documents in a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	docs map[string]entry
}

// New creates an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]entry)}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Put inserts or replaces a document. Fields are normalized through JSON so
// matching sees the same value shapes as the SQL and search backends.
func (s *Store) Put(_ context.Context, doc db.Document) error {
	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}
	if fields == nil {
		fields = map[string]any{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = entry{doc: doc, fields: fields}
	return nil
}

// Get returns a document by id.
func (s *Store) Get(_ context.Context, id string) (db.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[id]
	if !ok {
		return db.Document{}, db.ErrKeyNotFound
	}
	return e.doc, nil
}

// Delete removes a document.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return db.ErrKeyNotFound
	}
	delete(s.docs, id)
	return nil
}

// NewQuery starts an unrestricted query.
func (s *Store) NewQuery() filter.Query {
	return &query{}
}

// Near returns documents within maxDistanceMeters of center, nearest first.
func (s *Store) Near(_ context.Context, center geo.Point, maxDistanceMeters float64) ([]filter.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []filter.Hit
	for id, e := range s.docs {
		if e.doc.Location == nil {
			continue
		}
		d := center.DistanceTo(*e.doc.Location)
		if d <= maxDistanceMeters {
			hits = append(hits, filter.Hit{ID: id, Distance: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	return hits, nil
}

// Count returns the number of documents matching q.
func (s *Store) Count(_ context.Context, q filter.Query) (int, error) {
	mq, err := asQuery(q)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(mq)), nil
}

// Fetch returns one sorted page of documents matching q.
func (s *Store) Fetch(
	_ context.Context, q filter.Query, order []filter.SortField, skip, limit int,
) ([]filter.Record, error) {
	mq, err := asQuery(q)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := s.match(mq)
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return less(mq, matched[i], matched[j], order)
	})

	skip = max(skip, 0)
	if skip >= len(matched) {
		return []filter.Record{}, nil
	}
	end := len(matched)
	if limit > 0 && limit < end-skip {
		end = skip + limit
	}

	out := make([]filter.Record, 0, end-skip)
	for _, e := range matched[skip:end] {
		out = append(out, filter.Record{ID: e.doc.ID, Fields: copyFields(e.fields)})
	}
	return out, nil
}

func (s *Store) match(q *query) []entry {
	var out []entry
	for id, e := range s.docs {
		if q.ids != nil {
			if _, ok := q.ids[id]; !ok {
				continue
			}
		}
		ok := true
		for _, c := range q.conds {
			if !c(id, e.fields) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, e)
		}
	}
	return out
}

func asQuery(q filter.Query) (*query, error) {
	mq, ok := q.(*query)
	if !ok {
		return nil, fmt.Errorf("%w: %T", db.ErrQueryType, q)
	}
	return mq, nil
}

func copyFields(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// lookup resolves a dotted path. "id" always yields the document id.
func lookup(id string, fields map[string]any, path string) any {
	if path == filter.FieldID {
		return id
	}
	var cur any = fields
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// scalars flattens a value into its comparable elements.
func scalars(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	if v == nil {
		return nil
	}
	return []any{v}
}

func text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
