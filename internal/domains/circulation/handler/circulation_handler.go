package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library-backend/internal/domains/circulation/model"
	"library-backend/internal/domains/circulation/service"
	"library-backend/internal/shared/identity"
	"library-backend/internal/shared/response"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

func caller(c *gin.Context) identity.Identity {
	id, _ := identity.FromContext(c.Request.Context())
	return id
}

// IssueBook - POST /issues/issue
func (h *Handler) IssueBook(c *gin.Context) {
	var req model.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	rec, err := h.service.Issue(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rec)
}

// ReturnBook - POST /issues/return
func (h *Handler) ReturnBook(c *gin.Context) {
	var req model.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	res, err := h.service.Return(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// SelfCheckout - POST /issues/self-checkout
func (h *Handler) SelfCheckout(c *gin.Context) {
	var body model.SelfServiceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ValidationError(c, err)
		return
	}

	rec, err := h.service.SelfCheckout(c.Request.Context(), model.SelfCheckoutRequest{
		Identity: caller(c),
		BookID:   body.BookID,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rec)
}

// SelfReturn - POST /issues/self-return
func (h *Handler) SelfReturn(c *gin.Context) {
	var body model.SelfServiceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ValidationError(c, err)
		return
	}

	res, err := h.service.SelfReturn(c.Request.Context(), model.SelfReturnRequest{
		Identity: caller(c),
		IssueID:  body.IssueID,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// ListTransactions - GET /issues/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	views, err := h.service.ListTransactions(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, views)
}

// MyTransactions - GET /issues/my
func (h *Handler) MyTransactions(c *gin.Context) {
	views, err := h.service.MyTransactions(c.Request.Context(), caller(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, views)
}

// DashboardStats - GET /dashboard/stats
func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.service.DashboardStats(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// CheckConsistency - GET /books/:id/consistency
func (h *Handler) CheckConsistency(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid book id")
		return
	}

	report, err := h.service.CheckConsistency(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}
