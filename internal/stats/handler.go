package stats

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bilda/backend/internal/chat"
	"github.com/bilda/backend/internal/presence"
	"github.com/bilda/backend/internal/viewers"
	"github.com/bilda/backend/pkg/response"
)

// Handler handles GET /channels/:user_id/stats.
type Handler struct {
	presenceRepo *presence.Repository
	viewerRepo   *viewers.Repository
	chatRepo     *chat.Repository
}

// NewHandler creates a stats handler.
func NewHandler(presenceRepo *presence.Repository, viewerRepo *viewers.Repository, chatRepo *chat.Repository) *Handler {
	return &Handler{presenceRepo: presenceRepo, viewerRepo: viewerRepo, chatRepo: chatRepo}
}

// SummaryResponse is the JSON shape for channel stats.
type SummaryResponse struct {
	Live              bool  `json:"live"`
	CurrentViewers    int   `json:"current_viewers"`
	PeakViewers       int   `json:"peak_viewers"`
	TotalWatchSeconds int64 `json:"total_watch_seconds"`
	DistinctViewers   int   `json:"distinct_viewers"`
	AvgWatchSeconds   int64 `json:"avg_watch_seconds"`
	ChatMessages      int   `json:"chat_messages"`
}

// GetByChannel handles GET /channels/:user_id/stats (public).
func (h *Handler) GetByChannel(c *gin.Context) {
	channelUserID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.BadRequest(c, "invalid channel user id")
		return
	}
	ctx := c.Request.Context()

	out := SummaryResponse{}

	session, err := h.presenceRepo.GetByUserID(ctx, channelUserID)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if session != nil {
		out.Live = true
		out.CurrentViewers = session.ViewersCount
		out.PeakViewers = session.PeakViewers
	}

	agg, err := h.viewerRepo.GetChannelAggregates(ctx, channelUserID)
	if err != nil {
		response.Internal(c, "failed to load watch aggregates")
		return
	}
	out.TotalWatchSeconds = agg.TotalWatchSeconds
	out.DistinctViewers = agg.DistinctViewers
	if agg.DistinctViewers > 0 {
		out.AvgWatchSeconds = agg.TotalWatchSeconds / int64(agg.DistinctViewers)
	}

	chatCount, err := h.chatRepo.CountByChannel(ctx, channelUserID)
	if err != nil {
		response.Internal(c, "failed to load chat count")
		return
	}
	out.ChatMessages = chatCount

	response.OK(c, out)
}
