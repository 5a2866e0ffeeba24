package model

import (
	"fmt"

	"library-backend/internal/shared/apperror"
)

var (
	ErrIssueNotFound   = apperror.New(apperror.KindNotFound, "ISSUE_NOT_FOUND", "issue record not found")
	ErrAlreadyReturned = apperror.New(apperror.KindConflict, "ALREADY_RETURNED", "book already returned")
	ErrForbidden       = apperror.New(apperror.KindForbidden, "FORBIDDEN", "you can only return your own books")
	ErrUnauthorized    = apperror.New(apperror.KindUnauthorized, "UNAUTHORIZED", "caller identity is missing")
	ErrInvalidDueDate  = apperror.New(apperror.KindValidation, "INVALID_DUE_DATE", "due date must be in the future")
)

func NewIssueNotFoundError(id string) error {
	return fmt.Errorf("%w: id=%s", ErrIssueNotFound, id)
}

func NewAlreadyReturnedError(id string) error {
	return fmt.Errorf("%w: id=%s", ErrAlreadyReturned, id)
}
