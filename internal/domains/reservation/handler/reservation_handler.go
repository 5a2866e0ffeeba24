package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/reservation/model"
	"library-backend/internal/shared/identity"
	"library-backend/internal/shared/response"
)

// Reserver is served by the circulation engine, which owns the book lock
type Reserver interface {
	Reserve(ctx context.Context, req model.ReserveRequest) (*model.Reservation, error)
	MyReservations(ctx context.Context, caller identity.Identity) ([]model.View, error)
}

type Handler struct {
	reserver Reserver
}

func NewHandler(reserver Reserver) *Handler {
	return &Handler{reserver: reserver}
}

// CreateReservation - POST /reservations
func (h *Handler) CreateReservation(c *gin.Context) {
	var req model.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}
	req.Identity, _ = identity.FromContext(c.Request.Context())

	res, err := h.reserver.Reserve(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// MyReservations - GET /reservations/my
func (h *Handler) MyReservations(c *gin.Context) {
	id, _ := identity.FromContext(c.Request.Context())

	list, err := h.reserver.MyReservations(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}
