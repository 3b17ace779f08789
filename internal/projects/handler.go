package projects

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bilda/backend/internal/middleware"
	"github.com/bilda/backend/pkg/response"
)

// ProjectRequest is the body for POST /projects and PATCH /projects/:id.
type ProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
	RepoURL     string `json:"repo_url"`
}

// Handler handles project HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a projects handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Create handles POST /projects.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	project, err := h.repo.Create(c.Request.Context(), userID, req.Name, req.Emoji, req.Description, req.RepoURL)
	if err != nil {
		response.Internal(c, "failed to create project")
		return
	}
	response.Created(c, project)
}

// ListMine handles GET /projects.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list projects")
		return
	}
	response.OK(c, gin.H{"projects": list})
}

// GetByID handles GET /projects/:id (public).
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	project, err := h.repo.GetProjectByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load project")
		return
	}
	if project == nil {
		response.NotFound(c, "project not found")
		return
	}
	response.OK(c, project)
}

// Update handles PATCH /projects/:id (owner only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	project, err := h.repo.Update(c.Request.Context(), id, userID, req.Name, req.Emoji, req.Description, req.RepoURL)
	if err != nil {
		response.Internal(c, "failed to update project")
		return
	}
	if project == nil {
		response.NotFound(c, "project not found")
		return
	}
	response.OK(c, project)
}

// Delete handles DELETE /projects/:id (owner only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if err := h.repo.Delete(c.Request.Context(), id, userID); err != nil {
		response.Internal(c, "failed to delete project")
		return
	}
	response.NoContent(c)
}
