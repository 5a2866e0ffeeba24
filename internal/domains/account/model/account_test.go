package model

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/identity"
)

func Test_Errors_MapToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate email", ErrEmailAlreadyExists, http.StatusConflict},
		{"wrapped not found", NewAccountNotFoundError("ada@school.test"), http.StatusNotFound},
		{"bad credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"role", ErrRoleNotAllowed, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperror.HTTPStatus(tc.err))
		})
	}
}

func Test_Account_IdentityCopiesLink(t *testing.T) {
	memberID := uuid.New()
	a := &Account{ID: uuid.New(), Email: "ada@school.test", Role: identity.RoleStudent, MemberID: &memberID}

	id := a.Identity()
	assert.Equal(t, a.ID, id.AccountID)
	require.NotNil(t, id.LinkedMemberID)
	assert.Equal(t, memberID, *id.LinkedMemberID)

	*a.MemberID = uuid.New()
	assert.Equal(t, memberID, *id.LinkedMemberID, "identity does not alias the account")
}
