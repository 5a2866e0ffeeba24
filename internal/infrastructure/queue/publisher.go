package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/shared"
	"library-backend/pkg/cache"
	"library-backend/pkg/logger"
)

// Enqueuer is the part of *asynq.Client the publisher needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AvailabilityPublisher drops the cached availability of a book and queues
// a sync task that rebuilds it from the database.
type AvailabilityPublisher struct {
	client Enqueuer
	cache  cache.Cache
}

// NewAvailabilityPublisher accepts a nil client; only the cache is dropped then
func NewAvailabilityPublisher(client Enqueuer, c cache.Cache) *AvailabilityPublisher {
	return &AvailabilityPublisher{client: client, cache: c}
}

func (p *AvailabilityPublisher) PublishAvailabilityChanged(ctx context.Context, bookID uuid.UUID, source string) error {
	if p.cache != nil {
		if err := p.cache.Delete(ctx, bookModel.AvailabilityCacheKey(bookID.String())); err != nil {
			logger.Warn("availability cache delete failed", map[string]interface{}{
				"book_id": bookID.String(),
				"error":   err.Error(),
			})
		}
	}

	if p.client == nil {
		return nil
	}
	return EnqueueAvailabilitySync(ctx, p.client, bookID.String(), source)
}

// EnqueueAvailabilitySync queues a sync for one book, or all books when
// bookID is empty.
func EnqueueAvailabilitySync(ctx context.Context, client Enqueuer, bookID, source string) error {
	payload, err := json.Marshal(shared.AvailabilitySyncPayload{
		BookID:        bookID,
		Source:        source,
		CorrelationID: uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("marshal availability sync payload: %w", err)
	}

	task := asynq.NewTask(shared.TypeAvailabilitySync, payload)
	info, err := client.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueCirculation),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("enqueue availability sync: %w", err)
	}

	logger.Debug("enqueued availability sync " + info.ID)
	return nil
}
