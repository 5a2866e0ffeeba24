// Package identity describes the authenticated caller as seen by the domains.
package identity

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleStudent   Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleStudent:
		return true
	}
	return false
}

// IsStaff reports whether the role may run staff circulation desks
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleLibrarian
}

// Identity is the caller resolved from the access token and the account store
type Identity struct {
	AccountID      uuid.UUID
	Email          string
	Role           Role
	LinkedMemberID *uuid.UUID
}

// IsZero reports an identity that carries nothing to resolve a member from
func (i Identity) IsZero() bool {
	return i.AccountID == uuid.Nil && i.Email == ""
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
