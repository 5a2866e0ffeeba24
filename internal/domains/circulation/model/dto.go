package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"library-backend/internal/shared/identity"
)

// ========================================
// ENGINE REQUESTS
// ========================================

// requiredID rejects uuid.Nil, which validation.Required treats as present
var requiredID = validation.By(func(value interface{}) error {
	if id, ok := value.(uuid.UUID); ok && id == uuid.Nil {
		return errors.New("cannot be blank")
	}
	return nil
})

// IssueRequest - librarian desk issue
type IssueRequest struct {
	BookID   uuid.UUID `json:"book_id"`
	MemberID uuid.UUID `json:"member_id"`
	DueDate  time.Time `json:"due_date"`
}

func (r IssueRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookID, requiredID),
		validation.Field(&r.MemberID, requiredID),
		validation.Field(&r.DueDate, validation.Required),
	)
}

// ReturnRequest - librarian desk return
type ReturnRequest struct {
	IssueID uuid.UUID `json:"issue_id"`
}

func (r ReturnRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IssueID, requiredID),
	)
}

// SelfCheckoutRequest carries no due date; the loan period is fixed
type SelfCheckoutRequest struct {
	Identity identity.Identity
	BookID   uuid.UUID
}

type SelfReturnRequest struct {
	Identity identity.Identity
	IssueID  uuid.UUID
}

// SelfServiceBody is the JSON accepted by the self-service endpoints
type SelfServiceBody struct {
	BookID  uuid.UUID `json:"book_id"`
	IssueID uuid.UUID `json:"issue_id"`
}

type ReturnResult struct {
	Record *IssueRecord `json:"record"`
	Fine   int          `json:"fine"`
}

// ========================================
// READ MODELS
// ========================================

// RecordView is an issue record enriched for listings
type RecordView struct {
	IssueRecord
	BookTitle  string `json:"book_title"`
	MemberName string `json:"member_name"`
}

type DashboardStats struct {
	TotalBooks         int          `json:"total_books"`
	AvailableBooks     int          `json:"available_books"`
	IssuedBooks        int          `json:"issued_books"`
	TotalMembers       int          `json:"total_members"`
	OverdueBooks       int          `json:"overdue_books"`
	RecentTransactions []RecordView `json:"recent_transactions"`
}

// ConsistencyReport compares a book's counter with its open ledger entries
type ConsistencyReport struct {
	BookID     uuid.UUID `json:"book_id"`
	Total      int       `json:"total"`
	Available  int       `json:"available"`
	Open       int       `json:"open"`
	Consistent bool      `json:"consistent"`
}

// OverdueSummary is cached by the overdue scan job
type OverdueSummary struct {
	Count        int       `json:"count"`
	AccruedFines int       `json:"accrued_fines"`
	ScannedAt    time.Time `json:"scanned_at"`
}

const OverdueSummaryCacheKey = "library:overdue:summary"
