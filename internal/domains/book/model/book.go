package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Book is a title held by the library with a count of physical copies.
// AvailableQuantity only moves through Decrement/Increment or an admin
// total update, and always stays within [0, TotalQuantity].
type Book struct {
	ID                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	Author            string    `json:"author"`
	Category          string    `json:"category"`
	ISBN              string    `json:"isbn,omitempty"`
	TotalQuantity     int       `json:"total_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	AddedAt           time.Time `json:"added_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CopiesOut is how many copies are currently lent
func (b *Book) CopiesOut() int {
	return b.TotalQuantity - b.AvailableQuantity
}

// Patch carries an admin edit; nil fields are left unchanged
type Patch struct {
	Title         *string
	Author        *string
	Category      *string
	ISBN          *string
	TotalQuantity *int
}

// Apply returns the patched copy of b. A new total keeps the number of
// lent copies constant and fails when it would drop below it.
func (p Patch) Apply(b Book, now time.Time) (Book, error) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.ISBN != nil {
		b.ISBN = *p.ISBN
	}
	if p.TotalQuantity != nil {
		newTotal := *p.TotalQuantity
		out := b.CopiesOut()
		if newTotal < 0 || newTotal < out {
			return b, NewInvalidQuantityError(newTotal, out)
		}
		b.AvailableQuantity = newTotal - out
		b.TotalQuantity = newTotal
	}
	b.UpdatedAt = now
	return b, nil
}

// Totals aggregates the catalogue for the dashboard
type Totals struct {
	Titles         int `json:"total_books"`
	AvailableCount int `json:"available_copies"`
}

// Availability is the snapshot cached per book
type Availability struct {
	BookID            string    `json:"book_id"`
	TotalQuantity     int       `json:"total_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func NewAvailability(b *Book, at time.Time) Availability {
	return Availability{
		BookID:            b.ID.String(),
		TotalQuantity:     b.TotalQuantity,
		AvailableQuantity: b.AvailableQuantity,
		UpdatedAt:         at.UTC(),
	}
}

// AvailabilityCacheTTL bounds how long a snapshot can outlive a missed
// invalidation
const AvailabilityCacheTTL = 10 * time.Minute

// AvailabilityCacheKey is the cache key holding a book's Availability
func AvailabilityCacheKey(bookID string) string {
	return fmt.Sprintf("library:book:%s:availability", bookID)
}

// ListFilter narrows List; zero value lists everything
type ListFilter struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}
