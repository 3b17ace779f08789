package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User represents a platform account. Every user can broadcast; there is no
// separate streamer role.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	GitHubLogin string    `json:"github_login,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile is the public display snapshot of a user, joined onto live sessions
// and chat messages.
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

// ToProfile converts User to its public Profile snapshot.
func (u *User) ToProfile() Profile {
	return Profile{
		UserID:      u.ID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}
