package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/directory/internal/domain"
	dombiz "github.com/kailas-cloud/directory/internal/domain/business"
	domfilter "github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

const registrationSubject = "Your business has been registered"

// Service handles the business directory.
type Service struct {
	repo    Repository
	exec    Executor
	parser  *domfilter.Parser
	postal  domfilter.PostalLookup
	cache   Invalidator
	mailer  Mailer
	objects ObjectRemover
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// New creates a business service.
func New(
	repo Repository,
	exec Executor,
	parser *domfilter.Parser,
	postal domfilter.PostalLookup,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:   repo,
		exec:   exec,
		parser: parser,
		postal: postal,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// WithInvalidator drops cached results on every write.
func (s *Service) WithInvalidator(c Invalidator) *Service {
	s.cache = c
	return s
}

// WithMailer sends a registration mail on create.
func (s *Service) WithMailer(m Mailer) *Service {
	s.mailer = m
	return s
}

// WithObjects removes media objects on delete.
func (s *Service) WithObjects(o ObjectRemover) *Service {
	s.objects = o
	return s
}

// List runs a raw filter query restricted to active businesses.
func (s *Service) List(ctx context.Context, raw map[string]string) (domfilter.Result, error) {
	def, err := s.parser.Parse(raw)
	if err != nil {
		return domfilter.Result{}, fmt.Errorf("parse filter: %w", err)
	}
	res, err := s.exec.Execute(ctx, def.With("active", "true"))
	if err != nil {
		return domfilter.Result{}, fmt.Errorf("list businesses: %w", err)
	}
	return res, nil
}

// Get retrieves a business by id.
func (s *Service) Get(ctx context.Context, id string) (dombiz.Business, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return dombiz.Business{}, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}

// Create registers a new inactive business for owner.
func (s *Service) Create(ctx context.Context, owner string, attrs dombiz.Attributes) (dombiz.Business, error) {
	if owner == "" {
		return dombiz.Business{}, fmt.Errorf("create business: %w", domain.ErrForbidden)
	}
	n, err := s.repo.CountByOwner(ctx, owner)
	if err != nil {
		return dombiz.Business{}, fmt.Errorf("count businesses: %w", err)
	}
	if n >= dombiz.MaxPerOwner {
		return dombiz.Business{}, fmt.Errorf("create business: %w", domain.ErrLimitReached)
	}

	if attrs.Location == nil {
		attrs.Location = s.geocode(attrs.Address.Zip)
	}
	b, err := dombiz.New(s.newID(), owner, attrs, s.now())
	if err != nil {
		return dombiz.Business{}, fmt.Errorf("validate business: %w", err)
	}
	if err := s.repo.Save(ctx, b); err != nil {
		return dombiz.Business{}, fmt.Errorf("save business: %w", err)
	}
	s.invalidate(ctx)
	s.sendRegistration(ctx, b)
	return b, nil
}

// Update applies a patch to a business owned by owner.
func (s *Service) Update(ctx context.Context, owner, id string, p dombiz.Patch) (dombiz.Business, error) {
	b, err := s.owned(ctx, owner, id)
	if err != nil {
		return dombiz.Business{}, err
	}
	if p.IsEmpty() {
		return b, nil
	}

	if p.ChangesZip(b.Attributes().Address) {
		if loc := s.geocode(p.Address.Zip); loc != nil {
			p.Location = loc
		}
	}
	updated, err := b.Apply(p, s.now())
	if err != nil {
		return dombiz.Business{}, fmt.Errorf("validate business: %w", err)
	}
	if err := s.repo.Save(ctx, updated); err != nil {
		return dombiz.Business{}, fmt.Errorf("save business: %w", err)
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a business owned by owner together with its media.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	b, err := s.owned(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete business: %w", err)
	}
	s.invalidate(ctx)

	if s.objects == nil {
		return nil
	}
	for _, key := range b.Media().Keys() {
		if err := s.objects.Remove(ctx, key); err != nil && !errors.Is(err, domain.ErrStorageDisabled) {
			s.logger.Warn("Failed to remove media object",
				zap.String("business", id), zap.String("key", key), zap.Error(err))
		}
	}
	return nil
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

// geocode resolves a zip code through the postal table. Unknown codes leave
// the business without a location.
func (s *Service) geocode(zip string) *geo.Point {
	if zip == "" || s.postal == nil {
		return nil
	}
	p, ok := s.postal.Lookup(zip)
	if !ok {
		s.logger.Warn("Postal code not in lookup table", zap.String("zip", zip))
		return nil
	}
	return &p
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate result cache", zap.Error(err))
	}
}

func (s *Service) sendRegistration(ctx context.Context, b dombiz.Business) {
	to := b.Attributes().Email
	if s.mailer == nil || len(to) == 0 {
		return
	}
	body := fmt.Sprintf("%s is now registered in the directory and will be listed once activated.\nReference: %s\n",
		b.Attributes().Name, b.ID())
	if err := s.mailer.Send(ctx, to, registrationSubject, body); err != nil {
		s.logger.Warn("Failed to send registration mail", zap.String("business", b.ID()), zap.Error(err))
	}
}
