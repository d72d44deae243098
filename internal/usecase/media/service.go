// Package media manages business images in object storage.
package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/directory/internal/domain"
	dombiz "github.com/kailas-cloud/directory/internal/domain/business"
)

// CleanupJob is the scheduler name of the orphaned image cleanup.
const CleanupJob = "image-cleanup"

// DefaultCleanupDelay is used when no delay is configured.
const DefaultCleanupDelay = 15 * time.Minute

// DefaultMaxImageSize bounds uploads when no limit is configured.
const DefaultMaxImageSize = 10 << 20

const sniffLen = 512

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload is an image received from a client.
type Upload struct {
	Body io.Reader
	Size int64
}

// Service uploads, replaces and removes business images.
type Service struct {
	repo         Repository
	storage      Storage
	scheduler    Scheduler
	cache        Invalidator
	logger       *zap.Logger
	cleanupDelay time.Duration
	maxSize      int64
	now          func() time.Time
}

// New creates a media service.
func New(repo Repository, storage Storage, scheduler Scheduler, logger *zap.Logger) *Service {
	return &Service{
		repo:         repo,
		storage:      storage,
		scheduler:    scheduler,
		logger:       logger,
		cleanupDelay: DefaultCleanupDelay,
		maxSize:      DefaultMaxImageSize,
		now:          time.Now,
	}
}

// WithCleanupDelay sets how long an unreferenced object survives.
func (s *Service) WithCleanupDelay(d time.Duration) *Service {
	if d > 0 {
		s.cleanupDelay = d
	}
	return s
}

// WithMaxSize sets the upload size limit in bytes.
func (s *Service) WithMaxSize(n int64) *Service {
	if n > 0 {
		s.maxSize = n
	}
	return s
}

// WithInvalidator drops cached results after media changes.
func (s *Service) WithInvalidator(c Invalidator) *Service {
	s.cache = c
	return s
}

// Upload stores an image in the kind slot of a business owned by owner and
// returns the updated business and the new object key. Displaced objects
// and the new object are handed to the cleanup job, which removes whatever
// is no longer referenced once the delay elapses.
func (s *Service) Upload(
	ctx context.Context, owner, id string, kind dombiz.MediaKind, up Upload,
) (dombiz.Business, string, error) {
	b, err := s.owned(ctx, owner, id)
	if err != nil {
		return dombiz.Business{}, "", err
	}
	if up.Size <= 0 || up.Size > s.maxSize {
		return dombiz.Business{}, "", fmt.Errorf("image size %d: %w", up.Size, domain.ErrInvalidImage)
	}

	br := bufio.NewReaderSize(up.Body, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return dombiz.Business{}, "", fmt.Errorf("read image: %w", err)
	}
	contentType := http.DetectContentType(head)
	ext, ok := extensions[contentType]
	if !ok {
		return dombiz.Business{}, "", fmt.Errorf("content type %q: %w", contentType, domain.ErrInvalidImage)
	}

	key := fmt.Sprintf("businesses/%s/%s/%s%s", id, kind, uuid.NewString(), ext)
	media, displaced, err := b.Media().With(kind, key)
	if err != nil {
		return dombiz.Business{}, "", fmt.Errorf("place image: %w", err)
	}

	if err := s.storage.Put(ctx, key, br, up.Size, contentType); err != nil {
		return dombiz.Business{}, "", fmt.Errorf("store image: %w", err)
	}
	s.scheduleCleanup(id, key)

	updated := b.WithMedia(media, s.now())
	if err := s.repo.Save(ctx, updated); err != nil {
		return dombiz.Business{}, "", fmt.Errorf("save business: %w", err)
	}
	s.invalidate(ctx)
	if displaced != "" {
		s.scheduleCleanup(id, displaced)
	}
	return updated, key, nil
}

// Delete detaches key from a business owned by owner and removes the object.
func (s *Service) Delete(ctx context.Context, owner, id, key string) (dombiz.Business, error) {
	b, err := s.owned(ctx, owner, id)
	if err != nil {
		return dombiz.Business{}, err
	}
	if !b.Media().References(key) {
		return dombiz.Business{}, fmt.Errorf("image %s: %w", key, domain.ErrNotFound)
	}

	updated := b.WithMedia(b.Media().Without(key), s.now())
	if err := s.repo.Save(ctx, updated); err != nil {
		return dombiz.Business{}, fmt.Errorf("save business: %w", err)
	}
	s.invalidate(ctx)

	if err := s.storage.Remove(ctx, key); err != nil {
		s.logger.Warn("Failed to remove image, deferring to cleanup",
			zap.String("business", id), zap.String("key", key), zap.Error(err))
		s.scheduleCleanup(id, key)
	}
	return updated, nil
}

// Cleanup removes key from storage unless business id still references it.
func (s *Service) Cleanup(ctx context.Context, id, key string) error {
	b, err := s.repo.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return fmt.Errorf("get business: %w", err)
	case b.Media().References(key):
		return nil
	}
	if err := s.storage.Remove(ctx, key); err != nil {
		return fmt.Errorf("remove image: %w", err)
	}
	s.logger.Info("Removed unreferenced image", zap.String("business", id), zap.String("key", key))
	return nil
}

func (s *Service) scheduleCleanup(id, key string) {
	err := s.scheduler.Schedule(CleanupJob, s.cleanupDelay, func(ctx context.Context) error {
		return s.Cleanup(ctx, id, key)
	})
	if err != nil {
		s.logger.Warn("Failed to schedule image cleanup", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) owned(ctx context.Context, owner, id string) (dombiz.Business, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return dombiz.Business{}, fmt.Errorf("get business: %w", err)
	}
	if !b.OwnedBy(owner) {
		return dombiz.Business{}, fmt.Errorf("business %s: %w", id, domain.ErrForbidden)
	}
	return b, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate result cache", zap.Error(err))
	}
}
