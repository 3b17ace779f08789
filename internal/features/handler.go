package features

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bilda/backend/internal/middleware"
	"github.com/bilda/backend/internal/models"
	"github.com/bilda/backend/pkg/response"
)

// CreateRequest is the body for POST /features.
type CreateRequest struct {
	Title   string `json:"title" binding:"required"`
	Details string `json:"details"`
}

// StatusRequest is the body for PATCH /features/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles feature request HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a features handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /features (public, most voted first).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list feature requests")
		return
	}
	response.OK(c, gin.H{"features": list})
}

// Create handles POST /features.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	f := &models.FeatureRequest{
		UserID:  userID,
		Title:   req.Title,
		Details: req.Details,
	}
	if err := h.repo.Create(c.Request.Context(), f); err != nil {
		response.Internal(c, "failed to create feature request")
		return
	}
	response.Created(c, f)
}

// Upvote handles POST /features/:id/upvote (one vote per user).
func (h *Handler) Upvote(c *gin.Context) {
	featureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid feature id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	f, err := h.repo.GetByID(c.Request.Context(), featureID)
	if err != nil {
		response.Internal(c, "failed to load feature request")
		return
	}
	if f == nil {
		response.NotFound(c, "feature request not found")
		return
	}

	votes, err := h.repo.Upvote(c.Request.Context(), featureID, userID)
	if err != nil {
		response.Internal(c, "failed to upvote")
		return
	}
	response.OK(c, gin.H{"id": featureID, "votes": votes})
}

// UpdateStatus handles PATCH /features/:id/status (admin only, enforced by
// route middleware).
func (h *Handler) UpdateStatus(c *gin.Context) {
	featureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid feature id")
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status := models.FeatureStatus(req.Status)
	switch status {
	case models.FeatureStatusOpen, models.FeatureStatusPlanned, models.FeatureStatusShipped, models.FeatureStatusDeclined:
	default:
		response.BadRequest(c, "invalid status")
		return
	}

	f, err := h.repo.GetByID(c.Request.Context(), featureID)
	if err != nil {
		response.Internal(c, "failed to load feature request")
		return
	}
	if f == nil {
		response.NotFound(c, "feature request not found")
		return
	}

	if err := h.repo.UpdateStatus(c.Request.Context(), featureID, status); err != nil {
		response.Internal(c, "failed to update status")
		return
	}
	response.OK(c, gin.H{"id": featureID, "status": status})
}
