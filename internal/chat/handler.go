package chat

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bilda/backend/internal/middleware"
	"github.com/bilda/backend/internal/models"
	"github.com/bilda/backend/internal/realtime"
	"github.com/bilda/backend/pkg/response"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	maxMessageLength    = 500
	defaultTimeout      = 10 * time.Minute
)

// SendRequest is the body for POST /channels/:user_id/chat.
type SendRequest struct {
	Content string `json:"content" binding:"required"`
}

// TimeoutRequest is the body for POST /channels/:user_id/chat/timeouts.
type TimeoutRequest struct {
	UserID          string `json:"user_id" binding:"required"`
	DurationSeconds int    `json:"duration_seconds"`
}

// ModeratorRequest is the body for POST /channels/:user_id/moderators.
type ModeratorRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Handler handles channel chat HTTP endpoints. Messages are posted over HTTP
// so moderation runs in one place, then fan out to WebSocket clients via the
// hub.
type Handler struct {
	repo   *Repository
	hub    *realtime.Hub
	filter *Filter
}

// NewHandler creates a chat handler.
func NewHandler(repo *Repository, hub *realtime.Hub, filter *Filter) *Handler {
	return &Handler{repo: repo, hub: hub, filter: filter}
}

func channelParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.BadRequest(c, "invalid channel user id")
		return uuid.Nil, false
	}
	return id, true
}

// canModerate reports whether userID is the channel owner or a moderator.
func (h *Handler) canModerate(c *gin.Context, channelUserID, userID uuid.UUID) (bool, error) {
	if userID == channelUserID {
		return true, nil
	}
	return h.repo.IsModerator(c.Request.Context(), channelUserID, userID)
}

// Send handles POST /channels/:user_id/chat.
func (h *Handler) Send(c *gin.Context) {
	channelUserID, ok := channelParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(req.Content) > maxMessageLength {
		response.BadRequest(c, "message too long")
		return
	}

	timedOut, err := h.repo.IsTimedOut(c.Request.Context(), channelUserID, userID)
	if err != nil {
		response.Internal(c, "failed to check timeout")
		return
	}
	if timedOut {
		response.Forbidden(c, "you are timed out in this channel")
		return
	}
	if !h.filter.Allowed(req.Content) {
		response.BadRequest(c, "message rejected by chat filter")
		return
	}

	m := &models.ChatMessage{
		ChannelUserID: channelUserID,
		UserID:        userID,
		Content:       req.Content,
	}
	if err := h.repo.Create(c.Request.Context(), m); err != nil {
		response.Internal(c, "failed to send message")
		return
	}

	// Publish via Redis only so every instance broadcasts exactly once.
	h.hub.PublishToChannelOnly(channelUserID, "chat_message", m)
	response.Created(c, m)
}

// History handles GET /channels/:user_id/chat.
func (h *Handler) History(c *gin.Context) {
	channelUserID, ok := channelParam(c)
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	list, err := h.repo.ListByChannel(c.Request.Context(), channelUserID, limit)
	if err != nil {
		response.Internal(c, "failed to load chat history")
		return
	}
	response.OK(c, gin.H{"messages": list})
}

// DeleteMessage handles DELETE /channels/:user_id/chat/:message_id
// (owner or moderator).
func (h *Handler) DeleteMessage(c *gin.Context) {
	channelUserID, ok := channelParam(c)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	allowed, err := h.canModerate(c, channelUserID, userID)
	if err != nil {
		response.Internal(c, "failed to check permissions")
		return
	}
	if !allowed {
		response.Forbidden(c, "moderator rights required")
		return
	}

	m, err := h.repo.GetByID(c.Request.Context(), messageID)
	if err != nil {
		response.Internal(c, "failed to load message")
		return
	}
	if m == nil || m.ChannelUserID != channelUserID {
		response.NotFound(c, "message not found")
		return
	}
	if err := h.repo.MarkDeleted(c.Request.Context(), messageID); err != nil {
		response.Internal(c, "failed to delete message")
		return
	}

	h.hub.PublishToChannelOnly(channelUserID, "chat_message_deleted", gin.H{"id": messageID})
	response.OK(c, gin.H{"id": messageID, "deleted": true})
}

// Timeout handles POST /channels/:user_id/chat/timeouts (owner or moderator).
func (h *Handler) Timeout(c *gin.Context) {
	channelUserID, ok := channelParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req TimeoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	target, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if target == channelUserID {
		response.BadRequest(c, "cannot time out the channel owner")
		return
	}

	allowed, err := h.canModerate(c, channelUserID, userID)
	if err != nil {
		response.Internal(c, "failed to check permissions")
		return
	}
	if !allowed {
		response.Forbidden(c, "moderator rights required")
		return
	}

	duration := defaultTimeout
	if req.DurationSeconds > 0 {
		duration = time.Duration(req.DurationSeconds) * time.Second
	}
	expiresAt := time.Now().Add(duration)
	if err := h.repo.TimeoutUser(c.Request.Context(), channelUserID, target, expiresAt); err != nil {
		response.Internal(c, "failed to time out user")
		return
	}

	h.hub.PublishToChannelOnly(channelUserID, "chat_timeout", gin.H{
		"user_id":    target,
		"expires_at": expiresAt,
	})
	response.OK(c, gin.H{"user_id": target, "expires_at": expiresAt})
}

// AddModerator handles POST /channels/:user_id/moderators (owner only).
func (h *Handler) AddModerator(c *gin.Context) {
	channelUserID, ok := channelParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if userID != channelUserID {
		response.Forbidden(c, "only the channel owner can manage moderators")
		return
	}

	var req ModeratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	target, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	if err := h.repo.AddModerator(c.Request.Context(), channelUserID, target); err != nil {
		response.Internal(c, "failed to add moderator")
		return
	}
	response.OK(c, gin.H{"user_id": target, "moderator": true})
}

// RemoveModerator handles DELETE /channels/:user_id/moderators/:mod_id
// (owner only).
func (h *Handler) RemoveModerator(c *gin.Context) {
	channelUserID, ok := channelParam(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if userID != channelUserID {
		response.Forbidden(c, "only the channel owner can manage moderators")
		return
	}
	target, err := uuid.Parse(c.Param("mod_id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	if err := h.repo.RemoveModerator(c.Request.Context(), channelUserID, target); err != nil {
		response.Internal(c, "failed to remove moderator")
		return
	}
	response.NoContent(c)
}
