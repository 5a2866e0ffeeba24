package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Member struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Address        string    `json:"address,omitempty"`
	MembershipDate time.Time `json:"membership_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Patch carries a member edit; nil fields are left unchanged
type Patch struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

func (p Patch) Apply(m Member, now time.Time) Member {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Email != nil {
		m.Email = NormalizeEmail(*p.Email)
	}
	if p.Phone != nil {
		m.Phone = *p.Phone
	}
	if p.Address != nil {
		m.Address = *p.Address
	}
	m.UpdatedAt = now
	return m
}

// NormalizeEmail is applied before every store and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
