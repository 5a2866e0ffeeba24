package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"library-backend/internal/domains/reservation/model"
)

type MemoryRepository struct {
	mu           sync.RWMutex
	reservations map[uuid.UUID]model.Reservation
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{reservations: make(map[uuid.UUID]model.Reservation)}
}

func (r *MemoryRepository) existsPendingLocked(bookID, memberID uuid.UUID) bool {
	for _, res := range r.reservations {
		if res.BookID == bookID && res.MemberID == memberID && res.Status == model.StatusPending {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) Create(_ context.Context, res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.Status == model.StatusPending && r.existsPendingLocked(res.BookID, res.MemberID) {
		return model.NewDuplicatePendingError(res.BookID, res.MemberID)
	}
	r.reservations[res.ID] = *res
	return nil
}

func (r *MemoryRepository) ExistsPending(_ context.Context, bookID, memberID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.existsPendingLocked(bookID, memberID), nil
}

func (r *MemoryRepository) CountPendingByBook(_ context.Context, bookID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, res := range r.reservations {
		if res.BookID == bookID && res.Status == model.StatusPending {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CountPendingByMember(_ context.Context, memberID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, res := range r.reservations {
		if res.MemberID == memberID && res.Status == model.StatusPending {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ListByMember(_ context.Context, memberID uuid.UUID) ([]model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]model.Reservation, 0)
	for _, res := range r.reservations {
		if res.MemberID == memberID {
			list = append(list, res)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}
