package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/book/model"
	"library-backend/internal/domains/book/repository"
	"library-backend/internal/shared/apperror"
	"library-backend/pkg/cache"
	"library-backend/pkg/lock"
	"library-backend/pkg/logger"
)

type BookService struct {
	repo         repository.RepositoryInterface
	loans        OpenLoanCounter
	reservations PendingReservationCounter
	locker       lock.Locker
	lockTimeout  time.Duration
	cache        cache.Cache
	cacheTTL     time.Duration
	publisher    AvailabilityPublisher
	now          func() time.Time
}

type Option func(*BookService)

// WithCache enables cached availability reads
func WithCache(c cache.Cache) Option {
	return func(s *BookService) { s.cache = c }
}

// WithAvailabilityTTL overrides model.AvailabilityCacheTTL
func WithAvailabilityTTL(ttl time.Duration) Option {
	return func(s *BookService) { s.cacheTTL = ttl }
}

func WithPublisher(p AvailabilityPublisher) Option {
	return func(s *BookService) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *BookService) { s.now = now }
}

func NewService(
	repo repository.RepositoryInterface,
	loans OpenLoanCounter,
	reservations PendingReservationCounter,
	locker lock.Locker,
	lockTimeout time.Duration,
	opts ...Option,
) *BookService {
	s := &BookService{
		repo:         repo,
		loans:        loans,
		reservations: reservations,
		locker:       locker,
		lockTimeout:  lockTimeout,
		cacheTTL:     model.AvailabilityCacheTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ServiceInterface = (*BookService)(nil)

func (s *BookService) Create(ctx context.Context, req model.CreateBookRequest) (*model.Book, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperror.Invalid(err)
	}

	now := s.now().UTC()
	total := req.Quantity()
	b := &model.Book{
		ID:                uuid.New(),
		Title:             req.Title,
		Author:            req.Author,
		Category:          req.Category,
		ISBN:              req.ISBN,
		TotalQuantity:     total,
		AvailableQuantity: total,
		AddedAt:           now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	logger.Info("book created", map[string]interface{}{
		"book_id": b.ID.String(),
		"total":   b.TotalQuantity,
	})
	return b, nil
}

func (s *BookService) GetByID(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *BookService) List(ctx context.Context, filter model.ListFilter) ([]model.Book, error) {
	return s.repo.List(ctx, filter)
}

// Update holds the book lock so an admin edit of the total never interleaves
// with an issue or return of the same title.
func (s *BookService) Update(ctx context.Context, id uuid.UUID, req model.UpdateBookRequest) (*model.Book, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Invalid(err)
	}

	unlock, err := lock.AcquireWithin(ctx, s.locker, lock.BookKey(id.String()), s.lockTimeout)
	if err != nil {
		return nil, apperror.Internal("LOCK_TIMEOUT", "book is busy", err)
	}
	defer unlock()

	b, err := s.repo.Update(ctx, id, req.ToPatch())
	if err != nil {
		return nil, err
	}

	if req.TotalQuantity != nil {
		s.publish(ctx, id, "book_update")
	}
	return b, nil
}

// Delete is refused while open issues or pending reservations reference the book
func (s *BookService) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := lock.AcquireWithin(ctx, s.locker, lock.BookKey(id.String()), s.lockTimeout)
	if err != nil {
		return apperror.Internal("LOCK_TIMEOUT", "book is busy", err)
	}
	defer unlock()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	open, err := s.loans.CountOpenByBook(ctx, id)
	if err != nil {
		return apperror.Internal("STORAGE_ERROR", "count open issues", err)
	}
	pending, err := s.reservations.CountPendingByBook(ctx, id)
	if err != nil {
		return apperror.Internal("STORAGE_ERROR", "count pending reservations", err)
	}
	if open > 0 || pending > 0 {
		return fmt.Errorf("%w: id=%s open=%d pending=%d", model.ErrBookHasOpenReferences, id, open, pending)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, model.AvailabilityCacheKey(id.String())); err != nil {
			logger.Warn("drop availability cache failed", map[string]interface{}{
				"book_id": id.String(),
				"error":   err.Error(),
			})
		}
	}

	logger.Info("book deleted", map[string]interface{}{"book_id": id.String()})
	return nil
}

// GetAvailability reads the cached snapshot first and falls back to the store.
// A cache failure never fails the read.
func (s *BookService) GetAvailability(ctx context.Context, id uuid.UUID) (*model.Availability, error) {
	if s.cache == nil {
		b, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		availability := model.NewAvailability(b, s.now())
		return &availability, nil
	}

	key := model.AvailabilityCacheKey(id.String())
	if cached, ok := s.cachedAvailability(ctx, key, id); ok {
		return cached, nil
	}

	// Fill under the book lock: Issue and Return publish (and drop the key)
	// while holding it, so a snapshot read here cannot land after their
	// invalidation.
	unlock, err := lock.AcquireWithin(ctx, s.locker, lock.BookKey(id.String()), s.lockTimeout)
	if err != nil {
		logger.Warn("availability fill skipped, book is busy", map[string]interface{}{
			"book_id": id.String(),
			"error":   err.Error(),
		})
		b, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		availability := model.NewAvailability(b, s.now())
		return &availability, nil
	}
	defer unlock()

	if cached, ok := s.cachedAvailability(ctx, key, id); ok {
		return cached, nil
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	availability := model.NewAvailability(b, s.now())
	if err := s.cache.Set(ctx, key, availability, s.cacheTTL); err != nil {
		logger.Warn("availability cache write failed", map[string]interface{}{
			"book_id": id.String(),
			"error":   err.Error(),
		})
	}
	return &availability, nil
}

func (s *BookService) cachedAvailability(ctx context.Context, key string, id uuid.UUID) (*model.Availability, bool) {
	var cached model.Availability
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.Warn("availability cache read failed", map[string]interface{}{
			"book_id": id.String(),
			"error":   err.Error(),
		})
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &cached, true
}

func (s *BookService) publish(ctx context.Context, id uuid.UUID, source string) {
	if s.publisher == nil {
		if s.cache != nil {
			_ = s.cache.Delete(ctx, model.AvailabilityCacheKey(id.String()))
		}
		return
	}
	if err := s.publisher.PublishAvailabilityChanged(ctx, id, source); err != nil {
		logger.Warn("publish availability change failed", map[string]interface{}{
			"book_id": id.String(),
			"source":  source,
			"error":   err.Error(),
		})
	}
}
