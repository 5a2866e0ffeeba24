package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/member/model"
)

// MemoryRepository keeps members in a map guarded by one mutex
type MemoryRepository struct {
	mu      sync.RWMutex
	members map[uuid.UUID]model.Member
	now     func() time.Time
	// lookupErr, when set, is returned by every read (tests only)
	lookupErr error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		members: make(map[uuid.UUID]model.Member),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Seed(members ...model.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range members {
		m.Email = model.NormalizeEmail(m.Email)
		r.members[m.ID] = m
	}
}

// FailLookups makes every subsequent read return err; nil restores normal reads
func (r *MemoryRepository) FailLookups(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookupErr = err
}

func (r *MemoryRepository) emailTaken(email string, except uuid.UUID) bool {
	for id, m := range r.members {
		if id != except && m.Email == email {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) Create(_ context.Context, m *model.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(m)
}

func (r *MemoryRepository) createLocked(m *model.Member) error {
	if r.emailTaken(m.Email, m.ID) {
		return fmt.Errorf("%w: email=%s", model.ErrEmailAlreadyExists, m.Email)
	}
	r.members[m.ID] = *m
	return nil
}

// FindOrCreateByEmail returns the member with m.Email, inserting m when none
// exists. created reports which happened. Atomic under the repository mutex.
func (r *MemoryRepository) FindOrCreateByEmail(_ context.Context, m *model.Member) (*model.Member, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.members {
		if existing.Email == m.Email {
			found := existing
			return &found, false, nil
		}
	}
	if err := r.createLocked(m); err != nil {
		return nil, false, err
	}
	created := *m
	return &created, true, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	m, ok := r.members[id]
	if !ok {
		return nil, model.NewMemberNotFoundError("id=" + id.String())
	}
	return &m, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*model.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	for _, m := range r.members {
		if m.Email == email {
			found := m
			return &found, nil
		}
	}
	return nil, model.NewMemberNotFoundError("email=" + email)
}

func (r *MemoryRepository) List(_ context.Context) ([]model.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]model.Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].MembershipDate.After(members[j].MembershipDate)
	})
	return members, nil
}

func (r *MemoryRepository) Update(_ context.Context, id uuid.UUID, patch model.Patch) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.members[id]
	if !ok {
		return nil, model.NewMemberNotFoundError("id=" + id.String())
	}
	updated := patch.Apply(current, r.now())
	if r.emailTaken(updated.Email, id) {
		return nil, fmt.Errorf("%w: email=%s", model.ErrEmailAlreadyExists, updated.Email)
	}
	r.members[id] = updated
	return &updated, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; !ok {
		return model.NewMemberNotFoundError("id=" + id.String())
	}
	delete(r.members, id)
	return nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members), nil
}

func (r *MemoryRepository) NamesByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if m, ok := r.members[id]; ok {
			names[id] = m.Name
		}
	}
	return names, nil
}
