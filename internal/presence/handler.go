package presence

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bilda/backend/internal/middleware"
	"github.com/bilda/backend/pkg/response"
)

// StartRequest is the body for POST /live/start.
type StartRequest struct {
	ProjectID uuid.UUID `json:"project_id" binding:"required"`
}

// Handler handles live session HTTP endpoints.
type Handler struct {
	repo              *Repository
	feed              *Feed
	events            *Events
	heartbeatInterval time.Duration
	logger            *zap.Logger
}

// NewHandler creates a presence handler.
func NewHandler(repo *Repository, feed *Feed, events *Events, heartbeatInterval time.Duration, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, feed: feed, events: events, heartbeatInterval: heartbeatInterval, logger: logger}
}

// GetFeed handles GET /live. Returns the last published snapshot with its
// updated_at timestamp; a stale timestamp means the store was unreachable on
// recent ticks.
func (h *Handler) GetFeed(c *gin.Context) {
	response.OK(c, h.feed.Snapshot())
}

// RefreshFeed handles POST /live/refresh (manual refresh affordance). Uses
// the same pipeline as poll and push triggers.
func (h *Handler) RefreshFeed(c *gin.Context) {
	h.feed.Refresh()
	response.OK(c, gin.H{"refreshing": true})
}

// Start handles POST /live/start. Going live while already live switches the
// broadcast to the new project instead of failing.
func (h *Handler) Start(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	session, err := h.repo.Start(c.Request.Context(), userID, req.ProjectID)
	if err != nil {
		h.logger.Error("start session", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to start session")
		return
	}

	h.publish(EventSessionStarted, userID)
	response.Created(c, gin.H{
		"session":                session,
		"heartbeat_interval_sec": int(h.heartbeatInterval.Seconds()),
	})
}

// Heartbeat handles POST /live/heartbeat. 404 means the session was
// reconciled away (or never started) and the client should start again.
func (h *Handler) Heartbeat(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	session, err := h.repo.Heartbeat(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to record heartbeat")
		return
	}
	if session == nil {
		response.NotFound(c, "not live")
		return
	}
	response.OK(c, session)
}

// Stop handles POST /live/stop. Idempotent: stopping when not live succeeds.
func (h *Handler) Stop(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if err := h.repo.Stop(c.Request.Context(), userID); err != nil {
		response.Internal(c, "failed to stop session")
		return
	}

	h.publish(EventSessionEnded, userID)
	response.OK(c, gin.H{"stopped": true})
}

// Watch handles GET /live/:user_id/watch. Applies the self-session guard:
// a streamer is not routed into their own viewer page.
func (h *Handler) Watch(c *gin.Context) {
	channelUserID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	viewerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if err := CanWatch(viewerID, channelUserID); err != nil {
		response.Conflict(c, err.Error())
		return
	}

	session, err := h.repo.GetByUserID(c.Request.Context(), channelUserID)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if session == nil {
		response.NotFound(c, "not live")
		return
	}
	response.OK(c, session)
}

func (h *Handler) publish(event string, userID uuid.UUID) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(event, gin.H{"user_id": userID}); err != nil {
		// Polling covers missed pushes.
		h.logger.Warn("publish live event", zap.String("event", event), zap.Error(err))
	}
}
