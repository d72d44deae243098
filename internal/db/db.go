package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

// Document is a stored directory record: its JSON attributes plus the
// columns every backend indexes natively.
type Document struct {
	ID       string
	Fields   map[string]any
	Location *geo.Point
	Modified time.Time
}

// RecordStore is the primary persistence facade: documents plus the
// filter engine's query surface.
//
//nolint:interfacebloat // facade; consumers use narrow sub-interfaces (ISP)
type RecordStore interface {
	Pinger
	DocumentStore
	filter.Store
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocumentStore provides keyed document persistence.
type DocumentStore interface {
	Put(ctx context.Context, doc Document) error
	Get(ctx context.Context, id string) (Document, error)
	Delete(ctx context.Context, id string) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// GeoIndex keeps member coordinates in a radius-searchable index.
type GeoIndex interface {
	GeoAdd(ctx context.Context, key, member string, p geo.Point) error
	GeoRemove(ctx context.Context, key, member string) error
	GeoRadius(ctx context.Context, key string, center geo.Point, radiusMeters float64) ([]filter.Hit, error)
}
