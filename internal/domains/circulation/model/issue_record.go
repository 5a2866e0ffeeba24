package model

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusIssued   Status = "issued"
	StatusReturned Status = "returned"
)

// IssueRecord is one borrowed copy. issued -> returned is the only
// transition and returned is terminal.
type IssueRecord struct {
	ID         uuid.UUID  `json:"id"`
	BookID     uuid.UUID  `json:"book_id"`
	MemberID   uuid.UUID  `json:"member_id"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     Status     `json:"status"`
	FineAmount int        `json:"fine_amount"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (r *IssueRecord) IsOpen() bool {
	return r.Status == StatusIssued
}

// IsOverdue reports an open record whose due instant has passed
func (r *IssueRecord) IsOverdue(now time.Time) bool {
	return r.IsOpen() && now.After(r.DueDate)
}

// MarkReturned moves the record to returned and fixes the fine.
// Fails with ErrAlreadyReturned, leaving r untouched, on a second call.
func (r *IssueRecord) MarkReturned(at time.Time, fine int) error {
	if !r.IsOpen() {
		return NewAlreadyReturnedError(r.ID.String())
	}
	returned := at
	r.ReturnDate = &returned
	r.Status = StatusReturned
	r.FineAmount = fine
	r.UpdatedAt = at
	return nil
}

// NewIssueRecord builds an open record issued at now
func NewIssueRecord(bookID, memberID uuid.UUID, due, now time.Time) *IssueRecord {
	return &IssueRecord{
		ID:        uuid.New(),
		BookID:    bookID,
		MemberID:  memberID,
		IssueDate: now,
		DueDate:   due,
		Status:    StatusIssued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
