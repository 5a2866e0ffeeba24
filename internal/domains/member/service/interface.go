package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/member/model"
	"library-backend/internal/shared/identity"
)

type ServiceInterface interface {
	Create(ctx context.Context, req model.CreateMemberRequest) (*model.Member, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
	List(ctx context.Context) ([]model.Member, error)
	Update(ctx context.Context, id uuid.UUID, req model.UpdateMemberRequest) (*model.Member, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Resolve maps an authenticated caller to a member: linked id first,
	// then email. Storage failures are Internal, never "not found".
	Resolve(ctx context.Context, id identity.Identity) (*model.Member, error)
}

type OpenLoanCounter interface {
	CountOpenByMember(ctx context.Context, memberID uuid.UUID) (int, error)
}

type PendingReservationCounter interface {
	CountPendingByMember(ctx context.Context, memberID uuid.UUID) (int, error)
}
