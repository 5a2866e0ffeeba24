package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/shared"
	"library-backend/pkg/cache"
	"library-backend/pkg/logger"
)

type BookReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*bookModel.Book, error)
	List(ctx context.Context, filter bookModel.ListFilter) ([]bookModel.Book, error)
}

// AvailabilitySyncHandler rebuilds cached availability snapshots from the
// book store. The database stays the source of truth.
type AvailabilitySyncHandler struct {
	books BookReader
	cache cache.Cache
	now   func() time.Time
}

func NewAvailabilitySyncHandler(books BookReader, c cache.Cache) *AvailabilitySyncHandler {
	return &AvailabilitySyncHandler{books: books, cache: c, now: time.Now}
}

func (h *AvailabilitySyncHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.AvailabilitySyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Error("AvailabilitySync: Failed to unmarshal payload", err)
		return fmt.Errorf("unmarshal AvailabilitySync payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.BookID == "" {
		return h.syncAll(ctx, payload.Source)
	}

	id, err := uuid.Parse(payload.BookID)
	if err != nil {
		return fmt.Errorf("invalid book_id %q: %w", payload.BookID, asynq.SkipRetry)
	}
	return h.syncOne(ctx, id, payload)
}

func (h *AvailabilitySyncHandler) syncOne(ctx context.Context, id uuid.UUID, payload shared.AvailabilitySyncPayload) error {
	key := bookModel.AvailabilityCacheKey(id.String())

	b, err := h.books.GetByID(ctx, id)
	if errors.Is(err, bookModel.ErrBookNotFound) {
		// deleted since the event was published
		return h.cache.Delete(ctx, key)
	}
	if err != nil {
		logger.Error("AvailabilitySync: GetByID failed", err)
		return err
	}

	snapshot := bookModel.NewAvailability(b, h.now())
	if err := h.cache.Set(ctx, key, snapshot, bookModel.AvailabilityCacheTTL); err != nil {
		return fmt.Errorf("cache availability: %w", err)
	}

	logger.Info("AvailabilitySync: cache updated", map[string]interface{}{
		"book_id":     id.String(),
		"available":   snapshot.AvailableQuantity,
		"total":       snapshot.TotalQuantity,
		"source":      payload.Source,
		"correlation": payload.CorrelationID,
	})
	return nil
}

func (h *AvailabilitySyncHandler) syncAll(ctx context.Context, source string) error {
	books, err := h.books.List(ctx, bookModel.ListFilter{})
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	at := h.now()
	failed := 0
	for i := range books {
		snapshot := bookModel.NewAvailability(&books[i], at)
		if err := h.cache.Set(ctx, bookModel.AvailabilityCacheKey(snapshot.BookID), snapshot, bookModel.AvailabilityCacheTTL); err != nil {
			failed++
		}
	}

	logger.Info("AvailabilitySync: full sync done", map[string]interface{}{
		"books":  len(books),
		"failed": failed,
		"source": source,
	})
	if failed > 0 {
		return fmt.Errorf("cache availability: %d of %d books failed", failed, len(books))
	}
	return nil
}
