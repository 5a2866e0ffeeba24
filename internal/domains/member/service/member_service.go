package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/member/model"
	"library-backend/internal/domains/member/repository"
	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/identity"
	"library-backend/pkg/lock"
	"library-backend/pkg/logger"
)

type MemberService struct {
	repo         repository.RepositoryInterface
	loans        OpenLoanCounter
	reservations PendingReservationCounter
	locker       lock.Locker
	lockTimeout  time.Duration
	now          func() time.Time
}

func NewService(
	repo repository.RepositoryInterface,
	loans OpenLoanCounter,
	reservations PendingReservationCounter,
	locker lock.Locker,
	lockTimeout time.Duration,
) *MemberService {
	return &MemberService{
		repo:         repo,
		loans:        loans,
		reservations: reservations,
		locker:       locker,
		lockTimeout:  lockTimeout,
		now:          time.Now,
	}
}

var _ ServiceInterface = (*MemberService)(nil)

func (s *MemberService) Create(ctx context.Context, req model.CreateMemberRequest) (*model.Member, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperror.Invalid(err)
	}

	now := s.now().UTC()
	m := &model.Member{
		ID:             uuid.New(),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		MembershipDate: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	logger.Info("member created", map[string]interface{}{"member_id": m.ID.String()})
	return m, nil
}

func (s *MemberService) GetByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *MemberService) List(ctx context.Context) ([]model.Member, error) {
	return s.repo.List(ctx)
}

func (s *MemberService) Update(ctx context.Context, id uuid.UUID, req model.UpdateMemberRequest) (*model.Member, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Invalid(err)
	}
	return s.repo.Update(ctx, id, req.ToPatch())
}

// Delete is refused while the member holds open issues or pending reservations.
// Issue and Reserve take member:<id> after the book lock, so no new reference
// can appear while this holds it.
func (s *MemberService) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := lock.AcquireWithin(ctx, s.locker, lock.MemberKey(id.String()), s.lockTimeout)
	if err != nil {
		return apperror.Internal("LOCK_TIMEOUT", "member is busy", err)
	}
	defer unlock()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	open, err := s.loans.CountOpenByMember(ctx, id)
	if err != nil {
		return apperror.Internal("STORAGE_ERROR", "count open issues", err)
	}
	pending, err := s.reservations.CountPendingByMember(ctx, id)
	if err != nil {
		return apperror.Internal("STORAGE_ERROR", "count pending reservations", err)
	}
	if open > 0 || pending > 0 {
		return fmt.Errorf("%w: id=%s open=%d pending=%d", model.ErrMemberHasOpenReferences, id, open, pending)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.Info("member deleted", map[string]interface{}{"member_id": id.String()})
	return nil
}

func (s *MemberService) Resolve(ctx context.Context, id identity.Identity) (*model.Member, error) {
	if id.LinkedMemberID != nil {
		m, err := s.repo.GetByID(ctx, *id.LinkedMemberID)
		switch {
		case err == nil:
			return m, nil
		case !errors.Is(err, model.ErrMemberNotFound):
			return nil, apperror.Internal("MEMBER_LOOKUP_FAILED", "resolve member by link", err)
		}
		// dangling link falls through to email
	}

	if email := model.NormalizeEmail(id.Email); email != "" {
		m, err := s.repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return m, nil
		case !errors.Is(err, model.ErrMemberNotFound):
			return nil, apperror.Internal("MEMBER_LOOKUP_FAILED", "resolve member by email", err)
		}
	}

	return nil, model.NewMemberNotFoundError("account=" + id.AccountID.String())
}
