package repository

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/book/model"
)

// RepositoryInterface is the inventory store.
// Decrement and Increment are atomic with respect to each other and never
// move AvailableQuantity outside [0, TotalQuantity].
type RepositoryInterface interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Book, error)
	List(ctx context.Context, filter model.ListFilter) ([]model.Book, error)
	// Update applies patch atomically; returns ErrInvalidQuantity when the
	// new total is below the copies currently issued.
	Update(ctx context.Context, id uuid.UUID, patch model.Patch) (*model.Book, error)
	// Delete removes the book. The postgres store re-checks open issues and
	// pending reservations in the same transaction (ErrBookHasOpenReferences).
	Delete(ctx context.Context, id uuid.UUID) error

	// Decrement takes one copy: ErrBookNotFound | ErrNoCopiesAvailable
	Decrement(ctx context.Context, id uuid.UUID) (*model.Book, error)
	// Increment gives one copy back, clamped to TotalQuantity
	Increment(ctx context.Context, id uuid.UUID) (*model.Book, error)

	Totals(ctx context.Context) (*model.Totals, error)
	// TitlesByID is used to enrich listings
	TitlesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}
