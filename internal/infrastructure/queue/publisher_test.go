package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookModel "library-backend/internal/domains/book/model"
	memcache "library-backend/internal/infrastructure/cache"
	"library-backend/internal/shared"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Type: task.Type()}, nil
}

func Test_PublishAvailabilityChanged(t *testing.T) {
	ctx := context.Background()
	c := memcache.NewMemoryCache()
	q := &fakeEnqueuer{}
	bookID := uuid.New()
	key := bookModel.AvailabilityCacheKey(bookID.String())
	require.NoError(t, c.Set(ctx, key, bookModel.Availability{BookID: bookID.String()}, time.Hour))

	p := NewAvailabilityPublisher(q, c)
	require.NoError(t, p.PublishAvailabilityChanged(ctx, bookID, "issue"))

	var cached bookModel.Availability
	found, err := c.Get(ctx, key, &cached)
	require.NoError(t, err)
	assert.False(t, found, "stale snapshot is dropped")

	require.Len(t, q.tasks, 1)
	assert.Equal(t, shared.TypeAvailabilitySync, q.tasks[0].Type())

	var payload shared.AvailabilitySyncPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &payload))
	assert.Equal(t, bookID.String(), payload.BookID)
	assert.Equal(t, "issue", payload.Source)
}

func Test_PublishAvailabilityChanged_EnqueueFailure(t *testing.T) {
	p := NewAvailabilityPublisher(&fakeEnqueuer{err: errors.New("redis down")}, memcache.NewMemoryCache())
	err := p.PublishAvailabilityChanged(context.Background(), uuid.New(), "return")
	assert.Error(t, err)
}

func Test_PublishAvailabilityChanged_CacheOnly(t *testing.T) {
	p := NewAvailabilityPublisher(nil, memcache.NewMemoryCache())
	assert.NoError(t, p.PublishAvailabilityChanged(context.Background(), uuid.New(), "return"))
}
