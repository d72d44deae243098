// Package business persists directory entries in the record store and keeps
// the geo index in sync.
package business

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/directory/internal/db"
	"github.com/kailas-cloud/directory/internal/domain"
	dombiz "github.com/kailas-cloud/directory/internal/domain/business"
	"github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

const reindexPageSize = 100

// store is the consumer interface for business documents (ISP).
type store interface {
	db.DocumentStore
	NewQuery() filter.Query
	Count(ctx context.Context, q filter.Query) (int, error)
	Fetch(ctx context.Context, q filter.Query, sort []filter.SortField, skip, limit int) ([]filter.Record, error)
}

// geoWriter maintains the proximity index.
type geoWriter interface {
	GeoAdd(ctx context.Context, key, member string, p geo.Point) error
	GeoRemove(ctx context.Context, key, member string) error
}

// Repo implements usecase/business.Repository.
type Repo struct {
	store  store
	geo    geoWriter
	geoKey string
	logger *zap.Logger
}

// New creates a business repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger}
}

// WithGeoIndex mirrors locations into a geo index under key.
func (r *Repo) WithGeoIndex(g geoWriter, key string) *Repo {
	r.geo = g
	r.geoKey = key
	return r
}

// Save creates or replaces a business.
func (r *Repo) Save(ctx context.Context, b dombiz.Business) error {
	if err := r.store.Put(ctx, toDocument(b)); err != nil {
		return fmt.Errorf("put business %s: %w", b.ID(), err)
	}
	if err := r.syncGeo(ctx, b.ID(), b.Location()); err != nil {
		return err
	}
	return nil
}

// Get returns a business by id.
func (r *Repo) Get(ctx context.Context, id string) (dombiz.Business, error) {
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return dombiz.Business{}, domain.ErrNotFound
		}
		return dombiz.Business{}, fmt.Errorf("get business %s: %w", id, err)
	}
	b, err := fromFields(id, doc.Fields)
	if err != nil {
		return dombiz.Business{}, err
	}
	if doc.Location != nil {
		b = b.WithLocation(doc.Location)
	}
	return b, nil
}

// Delete removes a business.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete business %s: %w", id, err)
	}
	return r.syncGeo(ctx, id, nil)
}

// CountByOwner returns how many businesses owner has registered.
func (r *Repo) CountByOwner(ctx context.Context, owner string) (int, error) {
	n, err := r.store.Count(ctx, r.store.NewQuery().WhereEquals("owner", owner))
	if err != nil {
		return 0, fmt.Errorf("count businesses of %s: %w", owner, err)
	}
	return n, nil
}

// Reindex rebuilds the geo index from the record store. It returns the
// number of indexed locations.
func (r *Repo) Reindex(ctx context.Context) (int, error) {
	if r.geo == nil {
		return 0, nil
	}
	order := []filter.SortField{{Field: filter.FieldID, Direction: filter.Asc}}
	indexed := 0
	for skip := 0; ; skip += reindexPageSize {
		recs, err := r.store.Fetch(ctx, r.store.NewQuery(), order, skip, reindexPageSize)
		if err != nil {
			return indexed, fmt.Errorf("reindex page at %d: %w", skip, err)
		}
		for _, rec := range recs {
			b, err := fromFields(rec.ID, rec.Fields)
			if err != nil {
				r.logger.Warn("Skipping undecodable business", zap.String("id", rec.ID), zap.Error(err))
				continue
			}
			if b.Location() == nil {
				continue
			}
			if err := r.syncGeo(ctx, rec.ID, b.Location()); err != nil {
				return indexed, err
			}
			indexed++
		}
		if len(recs) < reindexPageSize {
			return indexed, nil
		}
	}
}

func (r *Repo) syncGeo(ctx context.Context, id string, p *geo.Point) error {
	if r.geo == nil {
		return nil
	}
	if p == nil {
		if err := r.geo.GeoRemove(ctx, r.geoKey, id); err != nil {
			return fmt.Errorf("geo remove %s: %w", id, err)
		}
		return nil
	}
	if err := r.geo.GeoAdd(ctx, r.geoKey, id, *p); err != nil {
		return fmt.Errorf("geo add %s: %w", id, err)
	}
	return nil
}
