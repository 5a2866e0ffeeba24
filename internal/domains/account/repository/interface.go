package repository

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/account/model"
	memberModel "library-backend/internal/domains/member/model"
)

type RepositoryInterface interface {
	Create(ctx context.Context, a *model.Account) error
	// CreateWithMember links a to the member with m.Email, inserting m when
	// there is none. Both writes happen atomically.
	CreateWithMember(ctx context.Context, a *model.Account, m *memberModel.Member) (*memberModel.Member, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}
