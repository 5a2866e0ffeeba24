package model

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var isbnPattern = regexp.MustCompile(`^[0-9Xx-]{10,17}$`)

// CreateBookRequest - POST /books
type CreateBookRequest struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Category      string `json:"category"`
	ISBN          string `json:"isbn"`
	TotalQuantity *int   `json:"total_quantity"`
}

func (r *CreateBookRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.Category = strings.TrimSpace(r.Category)
	r.ISBN = strings.TrimSpace(r.ISBN)
}

func (r CreateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Author, validation.Length(0, 255)),
		validation.Field(&r.Category, validation.Length(0, 100)),
		validation.Field(&r.ISBN, validation.Match(isbnPattern)),
		validation.Field(&r.TotalQuantity, validation.Min(0)),
	)
}

// Quantity returns the requested total, default 1
func (r CreateBookRequest) Quantity() int {
	if r.TotalQuantity == nil {
		return 1
	}
	return *r.TotalQuantity
}

// UpdateBookRequest - PUT /books/:id, all fields optional
type UpdateBookRequest struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	Category      *string `json:"category"`
	ISBN          *string `json:"isbn"`
	TotalQuantity *int    `json:"total_quantity"`
}

func (r UpdateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 500)),
		validation.Field(&r.Author, validation.Length(0, 255)),
		validation.Field(&r.Category, validation.Length(0, 100)),
		validation.Field(&r.ISBN, validation.Match(isbnPattern)),
		validation.Field(&r.TotalQuantity, validation.Min(0)),
	)
}

func (r UpdateBookRequest) ToPatch() Patch {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	return Patch{
		Title:         trim(r.Title),
		Author:        trim(r.Author),
		Category:      trim(r.Category),
		ISBN:          trim(r.ISBN),
		TotalQuantity: r.TotalQuantity,
	}
}
