package repository

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/member/model"
)

type RepositoryInterface interface {
	Create(ctx context.Context, m *model.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
	// GetByEmail expects a normalized email
	GetByEmail(ctx context.Context, email string) (*model.Member, error)
	List(ctx context.Context) ([]model.Member, error)
	Update(ctx context.Context, id uuid.UUID, patch model.Patch) (*model.Member, error)
	// Delete removes the member. The postgres store re-checks open issues and
	// pending reservations in the same transaction.
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
	NamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}
