package job

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
	bookRepo "library-backend/internal/domains/book/repository"
	"library-backend/internal/domains/circulation/model"
	"library-backend/internal/domains/circulation/repository"
	memcache "library-backend/internal/infrastructure/cache"
	"library-backend/internal/shared"
)

func syncTask(t *testing.T, bookID string) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(shared.AvailabilitySyncPayload{BookID: bookID, Source: "test"})
	require.NoError(t, err)
	return asynq.NewTask(shared.TypeAvailabilitySync, payload)
}

func Test_AvailabilitySync_OneBook(t *testing.T) {
	ctx := context.Background()
	books := bookRepo.NewMemoryRepository()
	c := memcache.NewMemoryCache()
	b := bookModel.Book{ID: uuid.New(), Title: "Dune", TotalQuantity: 4, AvailableQuantity: 1}
	books.Seed(b)

	h := NewAvailabilitySyncHandler(books, c)
	require.NoError(t, h.ProcessTask(ctx, syncTask(t, b.ID.String())))

	var got bookModel.Availability
	found, err := c.Get(ctx, bookModel.AvailabilityCacheKey(b.ID.String()), &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, got.AvailableQuantity)
	assert.Equal(t, 4, got.TotalQuantity)
}

func Test_AvailabilitySync_AllBooks(t *testing.T) {
	ctx := context.Background()
	books := bookRepo.NewMemoryRepository()
	c := memcache.NewMemoryCache()
	a := bookModel.Book{ID: uuid.New(), Title: "A", TotalQuantity: 1, AvailableQuantity: 1}
	b := bookModel.Book{ID: uuid.New(), Title: "B", TotalQuantity: 2, AvailableQuantity: 0}
	books.Seed(a, b)

	h := NewAvailabilitySyncHandler(books, c)
	require.NoError(t, h.ProcessTask(ctx, syncTask(t, "")))

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		var got bookModel.Availability
		found, err := c.Get(ctx, bookModel.AvailabilityCacheKey(id.String()), &got)
		require.NoError(t, err)
		assert.True(t, found)
	}
}

func Test_AvailabilitySync_DeletedBookDropsSnapshot(t *testing.T) {
	ctx := context.Background()
	c := memcache.NewMemoryCache()
	id := uuid.New()
	key := bookModel.AvailabilityCacheKey(id.String())
	require.NoError(t, c.Set(ctx, key, bookModel.Availability{BookID: id.String()}, 0))

	h := NewAvailabilitySyncHandler(bookRepo.NewMemoryRepository(), c)
	require.NoError(t, h.ProcessTask(ctx, syncTask(t, id.String())))

	found, err := c.Get(ctx, key, &bookModel.Availability{})
	require.NoError(t, err)
	assert.False(t, found)
}

func Test_AvailabilitySync_BadPayloadSkipsRetry(t *testing.T) {
	h := NewAvailabilitySyncHandler(bookRepo.NewMemoryRepository(), memcache.NewMemoryCache())

	err := h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeAvailabilitySync, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	err = h.ProcessTask(context.Background(), syncTask(t, "not-a-uuid"))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func Test_OverdueScan_CachesSummary(t *testing.T) {
	ctx := context.Background()
	ledger := repository.NewMemoryLedger()
	c := memcache.NewMemoryCache()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	late := model.NewIssueRecord(uuid.New(), uuid.New(), now.Add(-36*time.Hour), now.Add(-10*24*time.Hour))
	onTime := model.NewIssueRecord(uuid.New(), uuid.New(), now.Add(24*time.Hour), now.Add(-time.Hour))
	ledger.Seed(*late, *onTime)

	h := NewOverdueScanHandler(ledger, c)
	h.now = func() time.Time { return now }

	payload, err := json.Marshal(shared.OverdueScanPayload{Limit: 10})
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(ctx, asynq.NewTask(shared.TypeOverdueScan, payload)))

	var summary model.OverdueSummary
	found, err := c.Get(ctx, model.OverdueSummaryCacheKey, &summary)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 2, summary.AccruedFines)

	stored, err := ledger.GetByID(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FineAmount, "scan never writes fines")
}
