package media

import (
	"context"
	"io"
	"time"

	dombiz "github.com/kailas-cloud/directory/internal/domain/business"
	"github.com/kailas-cloud/directory/internal/jobs"
)

// Repository loads and stores businesses.
type Repository interface {
	Get(ctx context.Context, id string) (dombiz.Business, error)
	Save(ctx context.Context, b dombiz.Business) error
}

// Storage holds media objects.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
}

// Scheduler runs delayed jobs.
type Scheduler interface {
	Schedule(name string, delay time.Duration, job jobs.Job) error
}

// Invalidator drops cached filter results after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}
