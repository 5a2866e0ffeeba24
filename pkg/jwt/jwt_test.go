package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Manager_RoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour)

	token, err := m.GenerateAccessToken("acc-1", "a@b.c", "student", "mem-1")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, "mem-1", claims.MemberID)
}

func Test_Manager_RejectsForeignSecret(t *testing.T) {
	token, err := NewManager("one", time.Hour).GenerateAccessToken("acc-1", "a@b.c", "admin", "")
	require.NoError(t, err)

	_, err = NewManager("two", time.Hour).ValidateAccessToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func Test_Manager_RejectsExpired(t *testing.T) {
	m := NewManager("secret", time.Minute)
	issuedAt := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issuedAt }

	token, err := m.GenerateAccessToken("acc-1", "a@b.c", "admin", "")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateAccessToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
