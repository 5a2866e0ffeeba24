package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/book/model"
)

// ServiceInterface - catalogue management and availability reads
type ServiceInterface interface {
	Create(ctx context.Context, req model.CreateBookRequest) (*model.Book, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Book, error)
	List(ctx context.Context, filter model.ListFilter) ([]model.Book, error)
	Update(ctx context.Context, id uuid.UUID, req model.UpdateBookRequest) (*model.Book, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetAvailability(ctx context.Context, id uuid.UUID) (*model.Availability, error)
}

// OpenLoanCounter reports open issue records per book
type OpenLoanCounter interface {
	CountOpenByBook(ctx context.Context, bookID uuid.UUID) (int, error)
}

// PendingReservationCounter reports pending reservations per book
type PendingReservationCounter interface {
	CountPendingByBook(ctx context.Context, bookID uuid.UUID) (int, error)
}

// AvailabilityPublisher is told whenever a book's available count may have changed
type AvailabilityPublisher interface {
	PublishAvailabilityChanged(ctx context.Context, bookID uuid.UUID, source string) error
}
