package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is something a user builds in public. Live sessions reference the
// project being worked on.
type Project struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Emoji       string    `json:"emoji,omitempty"`
	Description string    `json:"description,omitempty"`
	RepoURL     string    `json:"repo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
