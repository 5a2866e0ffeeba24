package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/circulation/model"
)

// LedgerInterface stores issue records
type LedgerInterface interface {
	Create(ctx context.Context, rec *model.IssueRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.IssueRecord, error)
	// MarkReturned transitions an open record. A record that is already
	// returned yields ErrAlreadyReturned and is left unchanged.
	MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time, fine int) (*model.IssueRecord, error)

	CountOpenByBook(ctx context.Context, bookID uuid.UUID) (int, error)
	CountOpenByMember(ctx context.Context, memberID uuid.UUID) (int, error)
	CountOpen(ctx context.Context) (int, error)
	CountOverdue(ctx context.Context, now time.Time) (int, error)

	ListOverdue(ctx context.Context, now time.Time) ([]model.IssueRecord, error)
	// ListRecent returns newest first; limit <= 0 lists everything
	ListRecent(ctx context.Context, limit int) ([]model.IssueRecord, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]model.IssueRecord, error)
}
