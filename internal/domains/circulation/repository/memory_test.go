package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/domains/circulation/model"
)

func Test_MemoryLedger_MarkReturned(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	now := time.Now()

	rec := model.NewIssueRecord(uuid.New(), uuid.New(), now.Add(-time.Hour), now.Add(-48*time.Hour))
	require.NoError(t, l.Create(ctx, rec))

	returned, err := l.MarkReturned(ctx, rec.ID, now, 4)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReturned, returned.Status)
	assert.Equal(t, 4, returned.FineAmount)
	require.NotNil(t, returned.ReturnDate)
	assert.True(t, returned.ReturnDate.Equal(now))

	stored, err := l.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReturned, stored.Status)
	assert.Equal(t, 4, stored.FineAmount)

	_, err = l.MarkReturned(ctx, rec.ID, now.Add(time.Hour), 9)
	assert.ErrorIs(t, err, model.ErrAlreadyReturned)

	stored, err = l.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.FineAmount, "a second return leaves the record alone")

	_, err = l.MarkReturned(ctx, uuid.New(), now, 0)
	assert.ErrorIs(t, err, model.ErrIssueNotFound)
}
