package model

import (
	"fmt"
	"net/http"

	"library-backend/internal/shared/apperror"
)

var (
	ErrMemberNotFound          = apperror.New(apperror.KindNotFound, "MEMBER_NOT_FOUND", "member not found")
	ErrEmailAlreadyExists      = apperror.New(apperror.KindConflict, "EMAIL_ALREADY_EXISTS", "a member with this email already exists").WithStatus(http.StatusConflict)
	ErrMemberHasOpenReferences = apperror.New(apperror.KindConflict, "MEMBER_HAS_OPEN_REFERENCES", "member has open issues or pending reservations").WithStatus(http.StatusConflict)
	ErrMemberHasHistory        = apperror.New(apperror.KindConflict, "MEMBER_HAS_HISTORY", "member has circulation history and cannot be deleted").WithStatus(http.StatusConflict)
)

func NewMemberNotFoundError(key string) error {
	return fmt.Errorf("%w: %s", ErrMemberNotFound, key)
}
