package model

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/identity"
)

// Account is a login. Students are linked to the member record they borrow as.
type Account struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         identity.Role `json:"role"`
	MemberID     *uuid.UUID    `json:"member_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (a *Account) Identity() identity.Identity {
	id := identity.Identity{
		AccountID: a.ID,
		Email:     a.Email,
		Role:      a.Role,
	}
	if a.MemberID != nil {
		linked := *a.MemberID
		id.LinkedMemberID = &linked
	}
	return id
}

var (
	ErrAccountNotFound    = apperror.New(apperror.KindNotFound, "ACCOUNT_NOT_FOUND", "account not found")
	ErrEmailAlreadyExists = apperror.New(apperror.KindConflict, "EMAIL_ALREADY_EXISTS", "an account with this email already exists").WithStatus(http.StatusConflict)
	ErrInvalidCredentials = apperror.New(apperror.KindUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	ErrRoleNotAllowed     = apperror.New(apperror.KindForbidden, "ROLE_NOT_ALLOWED", "public registration creates student accounts only")
)

func NewAccountNotFoundError(key string) error {
	return fmt.Errorf("%w: %s", ErrAccountNotFound, key)
}
