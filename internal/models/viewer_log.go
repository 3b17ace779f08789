package models

import (
	"time"

	"github.com/google/uuid"
)

// ViewerLog records one viewer's time in a channel's broadcast. Closed on
// leave with the watch duration; the points worker credits from it.
type ViewerLog struct {
	ID            uuid.UUID  `json:"id"`
	ChannelUserID uuid.UUID  `json:"channel_user_id"`
	SessionID     uuid.UUID  `json:"session_id"`
	UserID        uuid.UUID  `json:"user_id"`
	JoinedAt      time.Time  `json:"joined_at"`
	LeftAt        *time.Time `json:"left_at,omitempty"`
	WatchSeconds  int64      `json:"watch_seconds"`
}
