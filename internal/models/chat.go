package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one message in a channel's live chat. Channels are keyed by
// the streaming user (channel_user_id) so history survives individual
// sessions.
type ChatMessage struct {
	ID            uuid.UUID `json:"id"`
	ChannelUserID uuid.UUID `json:"channel_user_id"`
	UserID        uuid.UUID `json:"user_id"`
	Content       string    `json:"content"`
	Deleted       bool      `json:"deleted"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChannelModerator grants a user moderation rights in another user's channel.
type ChannelModerator struct {
	ChannelUserID uuid.UUID `json:"channel_user_id"`
	UserID        uuid.UUID `json:"user_id"`
	AddedAt       time.Time `json:"added_at"`
}

// ChatTimeout silences a user in a channel until it expires.
type ChatTimeout struct {
	ChannelUserID uuid.UUID `json:"channel_user_id"`
	UserID        uuid.UUID `json:"user_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}
