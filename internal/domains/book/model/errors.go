package model

import (
	"fmt"
	"net/http"

	"library-backend/internal/shared/apperror"
)

var (
	ErrBookNotFound          = apperror.New(apperror.KindNotFound, "BOOK_NOT_FOUND", "book not found")
	ErrNoCopiesAvailable     = apperror.New(apperror.KindConflict, "NO_COPIES_AVAILABLE", "no copies available")
	ErrISBNAlreadyExists     = apperror.New(apperror.KindConflict, "ISBN_ALREADY_EXISTS", "ISBN already exists").WithStatus(http.StatusConflict)
	ErrInvalidQuantity       = apperror.New(apperror.KindValidation, "INVALID_QUANTITY", "total quantity is lower than the copies currently issued")
	ErrBookHasOpenReferences = apperror.New(apperror.KindConflict, "BOOK_HAS_OPEN_REFERENCES", "book has open issues or pending reservations").WithStatus(http.StatusConflict)
	ErrBookHasHistory        = apperror.New(apperror.KindConflict, "BOOK_HAS_HISTORY", "book has circulation history and cannot be deleted").WithStatus(http.StatusConflict)
)

func NewBookNotFoundError(id string) error {
	return fmt.Errorf("%w: id=%s", ErrBookNotFound, id)
}

func NewNoCopiesAvailableError(id string) error {
	return fmt.Errorf("%w: id=%s", ErrNoCopiesAvailable, id)
}

func NewInvalidQuantityError(total, out int) error {
	return fmt.Errorf("%w: total=%d issued=%d", ErrInvalidQuantity, total, out)
}
