package business

import (
	"context"

	dombiz "github.com/kailas-cloud/directory/internal/domain/business"
	domfilter "github.com/kailas-cloud/directory/internal/domain/filter"
)

// Repository defines the storage contract for businesses.
type Repository interface {
	Save(ctx context.Context, b dombiz.Business) error
	Get(ctx context.Context, id string) (dombiz.Business, error)
	Delete(ctx context.Context, id string) error
	CountByOwner(ctx context.Context, owner string) (int, error)
}

// Executor runs parsed filter definitions.
type Executor interface {
	Execute(ctx context.Context, def domfilter.Definition) (domfilter.Result, error)
}

// Invalidator drops cached filter results after a write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Mailer sends outbound mail.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// ObjectRemover deletes stored media objects.
type ObjectRemover interface {
	Remove(ctx context.Context, key string) error
}
