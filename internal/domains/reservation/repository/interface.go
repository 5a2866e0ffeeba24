package repository

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/reservation/model"
)

type RepositoryInterface interface {
	// Create inserts a pending reservation; ErrDuplicatePending when the
	// (book, member) pair already has one.
	Create(ctx context.Context, res *model.Reservation) error
	ExistsPending(ctx context.Context, bookID, memberID uuid.UUID) (bool, error)
	CountPendingByBook(ctx context.Context, bookID uuid.UUID) (int, error)
	CountPendingByMember(ctx context.Context, memberID uuid.UUID) (int, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]model.Reservation, error)
}
