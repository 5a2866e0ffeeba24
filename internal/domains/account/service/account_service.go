package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/domains/account/model"
	"library-backend/internal/domains/account/repository"
	memberModel "library-backend/internal/domains/member/model"
	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/identity"
	"library-backend/pkg/jwt"
	"library-backend/pkg/logger"
)

const DefaultHashCost = 12

type ServiceInterface interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.Account, error)
	CreateAccount(ctx context.Context, req model.CreateAccountRequest) (*model.Account, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error)
}

type MemberLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*memberModel.Member, error)
}

type AccountService struct {
	repo     repository.RepositoryInterface
	members  MemberLookup
	tokens   *jwt.Manager
	hashCost int
	now      func() time.Time
}

type Option func(*AccountService)

// WithHashCost lowers the bcrypt cost, for tests
func WithHashCost(cost int) Option {
	return func(s *AccountService) { s.hashCost = cost }
}

func NewService(repo repository.RepositoryInterface, members MemberLookup, tokens *jwt.Manager, opts ...Option) *AccountService {
	s := &AccountService{
		repo:     repo,
		members:  members,
		tokens:   tokens,
		hashCost: DefaultHashCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ServiceInterface = (*AccountService)(nil)

// Register is the public sign-up. It only creates students, and links each
// one to the member with the same email, creating that member if needed.
func (s *AccountService) Register(ctx context.Context, req model.RegisterRequest) (*model.Account, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperror.Invalid(err)
	}
	if req.Role != "" && req.Role != identity.RoleStudent {
		return nil, model.ErrRoleNotAllowed
	}

	a, err := s.newAccount(req.Name, req.Email, req.Password, identity.RoleStudent)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.CreateWithMember(ctx, a, s.newMember(req.Name, req.Email))
	if err != nil {
		return nil, err
	}

	logger.Info("student registered", map[string]interface{}{
		"account_id": a.ID.String(),
		"member_id":  m.ID.String(),
	})
	return a, nil
}

// CreateAccount lets an admin open any kind of account. A student without an
// explicit member is linked by email the same way Register does.
func (s *AccountService) CreateAccount(ctx context.Context, req model.CreateAccountRequest) (*model.Account, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperror.Invalid(err)
	}

	a, err := s.newAccount(req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}

	switch {
	case req.MemberID != nil:
		if _, err := s.members.GetByID(ctx, *req.MemberID); err != nil {
			return nil, err
		}
		a.MemberID = req.MemberID
		err = s.repo.Create(ctx, a)
	case req.Role == identity.RoleStudent:
		_, err = s.repo.CreateWithMember(ctx, a, s.newMember(req.Name, req.Email))
	default:
		err = s.repo.Create(ctx, a)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("account created", map[string]interface{}{
		"account_id": a.ID.String(),
		"role":       string(a.Role),
	})
	return a, nil
}

func (s *AccountService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Invalid(err)
	}

	a, err := s.repo.GetByEmail(ctx, memberModel.NormalizeEmail(req.Email))
	switch {
	case errors.Is(err, model.ErrAccountNotFound):
		return nil, model.ErrInvalidCredentials
	case err != nil:
		return nil, apperror.Internal("ACCOUNT_LOOKUP_FAILED", "could not load account", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	memberID := ""
	if a.MemberID != nil {
		memberID = a.MemberID.String()
	}
	token, err := s.tokens.GenerateAccessToken(a.ID.String(), a.Email, string(a.Role), memberID)
	if err != nil {
		return nil, apperror.Internal("TOKEN_FAILED", "could not issue token", err)
	}

	return &model.LoginResponse{
		AccessToken: token,
		ExpiresAt:   s.now().Add(s.tokens.Expiry()),
		Account:     a,
	}, nil
}

func (s *AccountService) newAccount(name, email, password string, role identity.Role) (*model.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	return &model.Account{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *AccountService) newMember(name, email string) *memberModel.Member {
	now := s.now().UTC()
	return &memberModel.Member{
		ID:             uuid.New(),
		Name:           name,
		Email:          email,
		MembershipDate: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
