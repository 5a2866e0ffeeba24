package main

import (
	"github.com/hibiken/asynq"

	circulationJob "library-backend/internal/domains/circulation/job"
	"library-backend/internal/shared"
	"library-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	availabilitySync *circulationJob.AvailabilitySyncHandler
	overdueScan      *circulationJob.OverdueScanHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		availabilitySync: circulationJob.NewAvailabilitySyncHandler(c.BookRepo, c.Cache),
		overdueScan:      circulationJob.NewOverdueScanHandler(c.LedgerRepo, c.Cache),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeAvailabilitySync, h.availabilitySync.ProcessTask)
	mux.HandleFunc(shared.TypeOverdueScan, h.overdueScan.ProcessTask)
}
