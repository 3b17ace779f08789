package models

import (
	"time"

	"github.com/google/uuid"
)

// PointsEntry is one row in the channel points ledger. Balance is the sum of
// deltas. RefID makes credits idempotent: the award job for a given viewer
// log inserts with the log's ID and conflicts are no-ops.
type PointsEntry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	RefID     uuid.UUID `json:"ref_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Points reasons.
const (
	PointsReasonWatch  = "watch_time"
	PointsReasonRedeem = "redeem"
)
