package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/circulation/model"
)

// MemoryLedger keeps issue records in a map guarded by one mutex.
// It has no foreign keys: callers check book and member existence.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[uuid.UUID]model.IssueRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[uuid.UUID]model.IssueRecord)}
}

func (l *MemoryLedger) Seed(records ...model.IssueRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range records {
		l.records[rec.ID] = rec
	}
}

func (l *MemoryLedger) Create(_ context.Context, rec *model.IssueRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.ID] = *rec
	return nil
}

func (l *MemoryLedger) GetByID(_ context.Context, id uuid.UUID) (*model.IssueRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[id]
	if !ok {
		return nil, model.NewIssueNotFoundError(id.String())
	}
	return &rec, nil
}

func (l *MemoryLedger) MarkReturned(_ context.Context, id uuid.UUID, returnedAt time.Time, fine int) (*model.IssueRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return nil, model.NewIssueNotFoundError(id.String())
	}
	if err := rec.MarkReturned(returnedAt, fine); err != nil {
		return nil, err
	}
	l.records[id] = rec
	return &rec, nil
}

func (l *MemoryLedger) countWhere(match func(model.IssueRecord) bool) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, rec := range l.records {
		if match(rec) {
			n++
		}
	}
	return n
}

func (l *MemoryLedger) listWhere(match func(model.IssueRecord) bool, less func(a, b model.IssueRecord) bool) []model.IssueRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]model.IssueRecord, 0)
	for _, rec := range l.records {
		if match(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return less(records[i], records[j]) })
	return records
}

func (l *MemoryLedger) CountOpenByBook(_ context.Context, bookID uuid.UUID) (int, error) {
	return l.countWhere(func(rec model.IssueRecord) bool {
		return rec.BookID == bookID && rec.IsOpen()
	}), nil
}

func (l *MemoryLedger) CountOpenByMember(_ context.Context, memberID uuid.UUID) (int, error) {
	return l.countWhere(func(rec model.IssueRecord) bool {
		return rec.MemberID == memberID && rec.IsOpen()
	}), nil
}

func (l *MemoryLedger) CountOpen(_ context.Context) (int, error) {
	return l.countWhere(func(rec model.IssueRecord) bool { return rec.IsOpen() }), nil
}

func (l *MemoryLedger) CountOverdue(_ context.Context, now time.Time) (int, error) {
	return l.countWhere(func(rec model.IssueRecord) bool { return rec.IsOverdue(now) }), nil
}

func (l *MemoryLedger) ListOverdue(_ context.Context, now time.Time) ([]model.IssueRecord, error) {
	return l.listWhere(
		func(rec model.IssueRecord) bool { return rec.IsOverdue(now) },
		func(a, b model.IssueRecord) bool { return a.DueDate.Before(b.DueDate) },
	), nil
}

func (l *MemoryLedger) ListRecent(_ context.Context, limit int) ([]model.IssueRecord, error) {
	records := l.listWhere(
		func(model.IssueRecord) bool { return true },
		func(a, b model.IssueRecord) bool { return a.CreatedAt.After(b.CreatedAt) },
	)
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

func (l *MemoryLedger) ListByMember(_ context.Context, memberID uuid.UUID) ([]model.IssueRecord, error) {
	return l.listWhere(
		func(rec model.IssueRecord) bool { return rec.MemberID == memberID },
		func(a, b model.IssueRecord) bool { return a.IssueDate.After(b.IssueDate) },
	), nil
}
