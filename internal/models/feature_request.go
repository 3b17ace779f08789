package models

import (
	"time"

	"github.com/google/uuid"
)

// FeatureStatus is the lifecycle state of a feature request.
type FeatureStatus string

const (
	FeatureStatusOpen     FeatureStatus = "open"
	FeatureStatusPlanned  FeatureStatus = "planned"
	FeatureStatusShipped  FeatureStatus = "shipped"
	FeatureStatusDeclined FeatureStatus = "declined"
)

// FeatureRequest is a community feature suggestion with upvotes.
type FeatureRequest struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"user_id"`
	Title     string        `json:"title"`
	Details   string        `json:"details,omitempty"`
	Status    FeatureStatus `json:"status"`
	Votes     int           `json:"votes"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
