package models

import (
	"time"

	"github.com/google/uuid"
)

// LiveSession is one row per active broadcast. The table is shared,
// server-authoritative state: the streamer's client starts and heartbeats it,
// viewers bump the viewer count, and any client (or the worker) may reconcile
// stale rows away.
type LiveSession struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	StartedAt    time.Time `json:"started_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	ViewersCount int       `json:"viewers_count"`
	PeakViewers  int       `json:"peak_viewers"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EnrichedLiveSession joins a LiveSession with display data for the feed.
// Rebuilt from scratch every refresh cycle, never patched incrementally.
// Profile or Project is nil when the lookup failed or the row is gone;
// clients render a placeholder.
type EnrichedLiveSession struct {
	LiveSession
	Profile *Profile `json:"profile,omitempty"`
	Project *Project `json:"project,omitempty"`
}
