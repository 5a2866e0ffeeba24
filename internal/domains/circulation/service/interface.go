package service

import (
	"context"

	"github.com/google/uuid"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/circulation/model"
	memberModel "library-backend/internal/domains/member/model"
	resModel "library-backend/internal/domains/reservation/model"
	"library-backend/internal/shared/identity"
)

// ServiceInterface is the circulation engine: every operation that moves a
// book's available count or an issue record's state goes through here.
type ServiceInterface interface {
	Issue(ctx context.Context, req model.IssueRequest) (*model.IssueRecord, error)
	Return(ctx context.Context, req model.ReturnRequest) (*model.ReturnResult, error)
	SelfCheckout(ctx context.Context, req model.SelfCheckoutRequest) (*model.IssueRecord, error)
	SelfReturn(ctx context.Context, req model.SelfReturnRequest) (*model.ReturnResult, error)
	Reserve(ctx context.Context, req resModel.ReserveRequest) (*resModel.Reservation, error)

	ListTransactions(ctx context.Context) ([]model.RecordView, error)
	MyTransactions(ctx context.Context, caller identity.Identity) ([]model.RecordView, error)
	MyReservations(ctx context.Context, caller identity.Identity) ([]resModel.View, error)
	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
	CheckConsistency(ctx context.Context, bookID uuid.UUID) (*model.ConsistencyReport, error)
}

// ========================================
// COLLABORATORS
// ========================================

// Inventory is the part of the book store the engine mutates
type Inventory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*bookModel.Book, error)
	Decrement(ctx context.Context, id uuid.UUID) (*bookModel.Book, error)
	Increment(ctx context.Context, id uuid.UUID) (*bookModel.Book, error)
	Totals(ctx context.Context) (*bookModel.Totals, error)
	TitlesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type MemberDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*memberModel.Member, error)
	Count(ctx context.Context) (int, error)
	NamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type MemberResolver interface {
	Resolve(ctx context.Context, id identity.Identity) (*memberModel.Member, error)
}

type AvailabilityPublisher interface {
	PublishAvailabilityChanged(ctx context.Context, bookID uuid.UUID, source string) error
}
