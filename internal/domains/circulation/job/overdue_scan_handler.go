package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"library-backend/internal/domains/circulation/model"
	"library-backend/internal/shared"
	"library-backend/pkg/cache"
	"library-backend/pkg/logger"
)

type OverdueLister interface {
	ListOverdue(ctx context.Context, now time.Time) ([]model.IssueRecord, error)
}

// OverdueScanHandler previews the fines accrued by open overdue loans and
// caches the summary. Nothing is written to the ledger: fines are fixed only
// at return.
type OverdueScanHandler struct {
	ledger OverdueLister
	cache  cache.Cache
	now    func() time.Time
}

func NewOverdueScanHandler(ledger OverdueLister, c cache.Cache) *OverdueScanHandler {
	return &OverdueScanHandler{ledger: ledger, cache: c, now: time.Now}
}

func (h *OverdueScanHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload shared.OverdueScanPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal OverdueScan payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	now := h.now().UTC()
	records, err := h.ledger.ListOverdue(ctx, now)
	if err != nil {
		logger.Error("OverdueScan: ListOverdue failed", err)
		return err
	}

	summary := model.OverdueSummary{Count: len(records), ScannedAt: now}
	for i, rec := range records {
		fine := model.ComputeFine(rec.DueDate, now)
		summary.AccruedFines += fine
		if i < payload.Limit {
			logger.Info("OverdueScan: overdue loan", map[string]interface{}{
				"issue_id":  rec.ID.String(),
				"member_id": rec.MemberID.String(),
				"book_id":   rec.BookID.String(),
				"due_date":  rec.DueDate,
				"fine":      fine,
			})
		}
	}

	if err := h.cache.Set(ctx, model.OverdueSummaryCacheKey, summary, 0); err != nil {
		logger.Warn("OverdueScan: cache write failed", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("OverdueScan: done", map[string]interface{}{
		"overdue":       summary.Count,
		"accrued_fines": summary.AccruedFines,
	})
	return nil
}
