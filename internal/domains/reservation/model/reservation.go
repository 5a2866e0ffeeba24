package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/identity"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// Reservation is a standing request for a title with no copies on the shelf
type Reservation struct {
	ID        uuid.UUID `json:"id"`
	BookID    uuid.UUID `json:"book_id"`
	MemberID  uuid.UUID `json:"member_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewPending(bookID, memberID uuid.UUID, now time.Time) *Reservation {
	return &Reservation{
		ID:        uuid.New(),
		BookID:    bookID,
		MemberID:  memberID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// View is a reservation enriched for listings
type View struct {
	Reservation
	BookTitle string `json:"book_title"`
}

// ReserveRequest - POST /reservations. MemberID may be omitted and is then
// resolved from Identity. Students may only name their own member.
type ReserveRequest struct {
	Identity identity.Identity `json:"-"`
	BookID   uuid.UUID         `json:"book_id"`
	MemberID *uuid.UUID        `json:"member_id,omitempty"`
}

func (r ReserveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookID, validation.By(func(value interface{}) error {
			if id, _ := value.(uuid.UUID); id == uuid.Nil {
				return errors.New("cannot be blank")
			}
			return nil
		})),
	)
}

// Allocator turns pending reservations into loans once stock returns.
// Not wired: fulfilment is an extension point only.
type Allocator interface {
	Allocate(ctx context.Context, bookID uuid.UUID) ([]Reservation, error)
}

var (
	ErrBookAvailable    = apperror.New(apperror.KindConflict, "BOOK_AVAILABLE", "book is available, reservation not needed")
	ErrDuplicatePending = apperror.New(apperror.KindConflict, "DUPLICATE_PENDING_RESERVATION", "you already have a pending reservation for this book")
)

func NewDuplicatePendingError(bookID, memberID uuid.UUID) error {
	return fmt.Errorf("%w: book=%s member=%s", ErrDuplicatePending, bookID, memberID)
}
