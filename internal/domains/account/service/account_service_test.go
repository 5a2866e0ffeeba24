package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/domains/account/model"
	"library-backend/internal/domains/account/repository"
	memberModel "library-backend/internal/domains/member/model"
	memberRepo "library-backend/internal/domains/member/repository"
	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/identity"
	"library-backend/pkg/jwt"
)

func newTestService(t *testing.T) (*AccountService, *memberRepo.MemoryRepository, *jwt.Manager) {
	t.Helper()
	members := memberRepo.NewMemoryRepository()
	tokens := jwt.NewManager("test-secret", time.Hour)
	svc := NewService(repository.NewMemoryRepository(members), members, tokens, WithHashCost(bcrypt.MinCost))
	return svc, members, tokens
}

func Test_Register_CreatesLinkedMember(t *testing.T) {
	svc, members, _ := newTestService(t)

	a, err := svc.Register(context.Background(), model.RegisterRequest{
		Name:     "Ada Lovelace",
		Email:    "  Ada@School.Test ",
		Password: "analytical1",
	})
	require.NoError(t, err)

	assert.Equal(t, identity.RoleStudent, a.Role)
	assert.Equal(t, "ada@school.test", a.Email)
	require.NotNil(t, a.MemberID)

	m, err := members.GetByID(context.Background(), *a.MemberID)
	require.NoError(t, err)
	assert.Equal(t, "ada@school.test", m.Email)
}

func Test_Register_LinksExistingMemberByEmail(t *testing.T) {
	svc, members, _ := newTestService(t)
	existing := memberModel.Member{ID: uuid.New(), Name: "Grace", Email: "grace@school.test"}
	members.Seed(existing)

	a, err := svc.Register(context.Background(), model.RegisterRequest{
		Name:     "Grace Hopper",
		Email:    "grace@school.test",
		Password: "cobol1959",
	})
	require.NoError(t, err)
	require.NotNil(t, a.MemberID)
	assert.Equal(t, existing.ID, *a.MemberID)

	count, err := members.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_Register_Rejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, model.RegisterRequest{Name: "Eve", Email: "eve@school.test", Password: "password1", Role: identity.RoleAdmin})
	assert.ErrorIs(t, err, model.ErrRoleNotAllowed)

	_, err = svc.Register(ctx, model.RegisterRequest{Name: "Eve", Email: "not-an-email", Password: "password1"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Register(ctx, model.RegisterRequest{Name: "Eve", Email: "eve@school.test", Password: "short"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Register(ctx, model.RegisterRequest{Name: "Eve", Email: "eve@school.test", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, model.RegisterRequest{Name: "Eve", Email: "eve@school.test", Password: "password1"})
	assert.ErrorIs(t, err, model.ErrEmailAlreadyExists)
	assert.Equal(t, 409, apperror.HTTPStatus(err))
}

func Test_Login(t *testing.T) {
	svc, _, tokens := newTestService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, model.RegisterRequest{Name: "Alan", Email: "alan@school.test", Password: "enigma1912"})
	require.NoError(t, err)

	res, err := svc.Login(ctx, model.LoginRequest{Email: "ALAN@school.test", Password: "enigma1912"})
	require.NoError(t, err)
	assert.Equal(t, a.ID, res.Account.ID)

	claims, err := tokens.ValidateAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, a.ID.String(), claims.AccountID)
	assert.Equal(t, string(identity.RoleStudent), claims.Role)
	assert.Equal(t, a.MemberID.String(), claims.MemberID)

	_, err = svc.Login(ctx, model.LoginRequest{Email: "alan@school.test", Password: "wrong-pass1"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = svc.Login(ctx, model.LoginRequest{Email: "nobody@school.test", Password: "enigma1912"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials, "unknown email looks like a bad password")
}

func Test_CreateAccount_Staff(t *testing.T) {
	svc, members, _ := newTestService(t)

	a, err := svc.CreateAccount(context.Background(), model.CreateAccountRequest{
		Name:     "Desk",
		Email:    "desk@library.test",
		Password: "librarian1",
		Role:     identity.RoleLibrarian,
	})
	require.NoError(t, err)
	assert.Nil(t, a.MemberID)

	count, err := members.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count, "staff accounts get no member record")

	missing := uuid.New()
	_, err = svc.CreateAccount(context.Background(), model.CreateAccountRequest{
		Name:     "Ghost",
		Email:    "ghost@library.test",
		Password: "librarian1",
		Role:     identity.RoleStudent,
		MemberID: &missing,
	})
	assert.ErrorIs(t, err, memberModel.ErrMemberNotFound)
}
