package profiles

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bilda/backend/internal/middleware"
	"github.com/bilda/backend/pkg/response"
	"github.com/bilda/backend/pkg/storage"
)

// UpdateRequest is the body for PATCH /me/profile.
type UpdateRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Bio         string `json:"bio"`
}

// Handler handles profile HTTP endpoints.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a profiles handler. s3 may be nil when avatar storage is
// not configured; avatar endpoints then return 503-ish errors.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// GetByHandle handles GET /profiles/:handle (public).
func (h *Handler) GetByHandle(c *gin.Context) {
	profile, err := h.repo.GetByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		response.Internal(c, "failed to load profile")
		return
	}
	if profile == nil {
		response.NotFound(c, "profile not found")
		return
	}
	response.OK(c, profile)
}

// Update handles PATCH /me/profile.
func (h *Handler) Update(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.repo.Update(c.Request.Context(), userID, UpdateParams{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	}); err != nil {
		response.Internal(c, "failed to update profile")
		return
	}
	response.OK(c, gin.H{"updated": true})
}

// UploadAvatar handles POST /me/avatar (multipart form, field "file").
func (h *Handler) UploadAvatar(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "avatar storage not configured")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > storage.MaxAvatarFileSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.ValidateAvatarFileType(contentType, header.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(header.Filename)
	}

	key := storage.AvatarKey(userID.String(), header.Filename)
	url, err := h.s3.Upload(c.Request.Context(), key, contentType, file)
	if err != nil {
		h.logger.Error("avatar upload", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to upload avatar")
		return
	}

	if err := h.repo.UpdateAvatarURL(c.Request.Context(), userID, url); err != nil {
		response.Internal(c, "failed to save avatar url")
		return
	}
	response.OK(c, gin.H{"avatar_url": url})
}

// GenerateAvatarUploadURL handles POST /me/avatar/upload-url for direct
// browser uploads to S3.
func (h *Handler) GenerateAvatarUploadURL(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "avatar storage not configured")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req struct {
		Filename    string `json:"filename" binding:"required"`
		ContentType string `json:"content_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateAvatarFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}

	key := storage.AvatarKey(userID.String(), req.Filename)
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), key, contentType, h.s3.PresignExpire())
	if err != nil {
		response.Internal(c, "failed to generate upload url")
		return
	}
	response.OK(c, gin.H{
		"upload_url": url,
		"public_url": h.s3.PublicObjectURL(key),
		"key":        key,
	})
}
