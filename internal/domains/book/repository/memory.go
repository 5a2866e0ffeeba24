package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"library-backend/internal/domains/book/model"
)

// MemoryRepository keeps books in a map guarded by one mutex.
// Used by the memory storage backend and by tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	books map[uuid.UUID]model.Book
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		books: make(map[uuid.UUID]model.Book),
		now:   time.Now,
	}
}

// Seed inserts books as-is, overwriting existing IDs
func (r *MemoryRepository) Seed(books ...model.Book) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range books {
		r.books[b.ID] = b
	}
}

func (r *MemoryRepository) isbnTaken(isbn string, except uuid.UUID) bool {
	if isbn == "" {
		return false
	}
	for id, b := range r.books {
		if id != except && b.ISBN == isbn {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) Create(_ context.Context, b *model.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isbnTaken(b.ISBN, b.ID) {
		return model.ErrISBNAlreadyExists
	}
	r.books[b.ID] = *b
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[id]
	if !ok {
		return nil, model.NewBookNotFoundError(id.String())
	}
	return &b, nil
}

func (r *MemoryRepository) List(_ context.Context, filter model.ListFilter) ([]model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	books := make([]model.Book, 0, len(r.books))
	for _, b := range r.books {
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(b.Title), search) &&
			!strings.Contains(strings.ToLower(b.Author), search) &&
			!strings.Contains(strings.ToLower(b.ISBN), search) {
			continue
		}
		books = append(books, b)
	}

	sort.Slice(books, func(i, j int) bool {
		return books[i].AddedAt.After(books[j].AddedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(books) {
			return []model.Book{}, nil
		}
		books = books[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(books) {
		books = books[:filter.Limit]
	}
	return books, nil
}

func (r *MemoryRepository) Update(_ context.Context, id uuid.UUID, patch model.Patch) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.books[id]
	if !ok {
		return nil, model.NewBookNotFoundError(id.String())
	}

	updated, err := patch.Apply(current, r.now())
	if err != nil {
		return nil, err
	}
	if r.isbnTaken(updated.ISBN, id) {
		return nil, model.ErrISBNAlreadyExists
	}

	r.books[id] = updated
	return &updated, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[id]; !ok {
		return model.NewBookNotFoundError(id.String())
	}
	delete(r.books, id)
	return nil
}

func (r *MemoryRepository) Decrement(_ context.Context, id uuid.UUID) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[id]
	if !ok {
		return nil, model.NewBookNotFoundError(id.String())
	}
	if b.AvailableQuantity < 1 {
		return nil, model.NewNoCopiesAvailableError(id.String())
	}

	b.AvailableQuantity--
	b.UpdatedAt = r.now()
	r.books[id] = b
	return &b, nil
}

func (r *MemoryRepository) Increment(_ context.Context, id uuid.UUID) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[id]
	if !ok {
		return nil, model.NewBookNotFoundError(id.String())
	}

	if b.AvailableQuantity < b.TotalQuantity {
		b.AvailableQuantity++
	}
	b.UpdatedAt = r.now()
	r.books[id] = b
	return &b, nil
}

func (r *MemoryRepository) Totals(_ context.Context) (*model.Totals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t := &model.Totals{Titles: len(r.books)}
	for _, b := range r.books {
		t.AvailableCount += b.AvailableQuantity
	}
	return t, nil
}

func (r *MemoryRepository) TitlesByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	titles := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if b, ok := r.books[id]; ok {
			titles[id] = b.Title
		}
	}
	return titles, nil
}
