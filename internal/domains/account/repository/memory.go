package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"library-backend/internal/domains/account/model"
	memberModel "library-backend/internal/domains/member/model"
)

// MemberStore is the slice of the in-memory member repository used to link
// students at registration
type MemberStore interface {
	FindOrCreateByEmail(ctx context.Context, m *memberModel.Member) (*memberModel.Member, bool, error)
}

type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]model.Account
	members  MemberStore
}

func NewMemoryRepository(members MemberStore) *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[uuid.UUID]model.Account),
		members:  members,
	}
}

func (r *MemoryRepository) insertLocked(a *model.Account) error {
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return fmt.Errorf("%w: email=%s", model.ErrEmailAlreadyExists, a.Email)
		}
	}
	r.accounts[a.ID] = *a
	return nil
}

func (r *MemoryRepository) Create(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(a)
}

// CreateWithMember checks the email before touching the member store, so a
// duplicate registration leaves no orphan member behind.
func (r *MemoryRepository) CreateWithMember(ctx context.Context, a *model.Account, m *memberModel.Member) (*memberModel.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return nil, fmt.Errorf("%w: email=%s", model.ErrEmailAlreadyExists, a.Email)
		}
	}

	linked, _, err := r.members.FindOrCreateByEmail(ctx, m)
	if err != nil {
		return nil, err
	}
	a.MemberID = &linked.ID
	if err := r.insertLocked(a); err != nil {
		return nil, err
	}
	return linked, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, model.NewAccountNotFoundError("id=" + id.String())
	}
	return &a, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.Email == email {
			found := a
			return &found, nil
		}
	}
	return nil, model.NewAccountNotFoundError("email=" + email)
}
