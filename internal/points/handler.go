package points

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bilda/backend/internal/middleware"
	"github.com/bilda/backend/pkg/response"
)

const historyLimit = 50

// RedeemRequest is the body for POST /points/redeem.
type RedeemRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// Handler handles channel points HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a points handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// GetBalance handles GET /points.
func (h *Handler) GetBalance(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	balance, err := h.repo.Balance(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load balance")
		return
	}
	history, err := h.repo.History(c.Request.Context(), userID, historyLimit)
	if err != nil {
		response.Internal(c, "failed to load history")
		return
	}
	response.OK(c, gin.H{"balance": balance, "history": history})
}

// Redeem handles POST /points/redeem.
func (h *Handler) Redeem(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Amount <= 0 {
		response.BadRequest(c, "amount must be positive")
		return
	}

	ok, err := h.repo.Redeem(c.Request.Context(), userID, req.Amount)
	if err != nil {
		response.Internal(c, "failed to redeem points")
		return
	}
	if !ok {
		response.BadRequest(c, "insufficient balance")
		return
	}

	balance, err := h.repo.Balance(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load balance")
		return
	}
	response.OK(c, gin.H{"redeemed": req.Amount, "balance": balance})
}
