package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bilda/backend/internal/models"
)

// Repository handles chat persistence: messages, moderators and timeouts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new chat message.
func (r *Repository) Create(ctx context.Context, m *models.ChatMessage) error {
	const q = `INSERT INTO chat_messages (channel_user_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.ChannelUserID, m.UserID, m.Content).
		Scan(&m.ID, &m.CreatedAt)
}

// GetByID returns a chat message by ID, or nil, nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	const q = `SELECT id, channel_user_id, user_id, content, deleted, created_at
		FROM chat_messages WHERE id = $1`
	var m models.ChatMessage
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&m.ID, &m.ChannelUserID, &m.UserID, &m.Content, &m.Deleted, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListByChannel returns the most recent non-deleted messages for a channel,
// oldest first.
func (r *Repository) ListByChannel(ctx context.Context, channelUserID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	const q = `SELECT id, channel_user_id, user_id, content, deleted, created_at FROM (
			SELECT id, channel_user_id, user_id, content, deleted, created_at
			FROM chat_messages
			WHERE channel_user_id = $1 AND NOT deleted
			ORDER BY created_at DESC
			LIMIT $2
		) recent ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, channelUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChannelUserID, &m.UserID, &m.Content, &m.Deleted, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// MarkDeleted soft-deletes a message so clients can hide it from history.
func (r *Repository) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE chat_messages SET deleted = TRUE WHERE id = $1`, id)
	return err
}

// CountByChannel returns the number of messages ever sent in a channel.
func (r *Repository) CountByChannel(ctx context.Context, channelUserID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE channel_user_id = $1`, channelUserID).Scan(&n)
	return n, err
}

// AddModerator grants moderation rights in a channel. Idempotent.
func (r *Repository) AddModerator(ctx context.Context, channelUserID, userID uuid.UUID) error {
	const q = `INSERT INTO channel_moderators (channel_user_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (channel_user_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, channelUserID, userID)
	return err
}

// RemoveModerator revokes moderation rights in a channel.
func (r *Repository) RemoveModerator(ctx context.Context, channelUserID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM channel_moderators WHERE channel_user_id = $1 AND user_id = $2`, channelUserID, userID)
	return err
}

// IsModerator reports whether userID moderates the channel.
func (r *Repository) IsModerator(ctx context.Context, channelUserID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM channel_moderators WHERE channel_user_id = $1 AND user_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, channelUserID, userID).Scan(&ok)
	return ok, err
}

// TimeoutUser silences a user in a channel until expiresAt. Re-timing out
// replaces the previous expiry.
func (r *Repository) TimeoutUser(ctx context.Context, channelUserID, userID uuid.UUID, expiresAt time.Time) error {
	const q = `INSERT INTO chat_timeouts (channel_user_id, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_user_id, user_id) DO UPDATE SET expires_at = EXCLUDED.expires_at, created_at = NOW()`
	_, err := r.pool.Exec(ctx, q, channelUserID, userID, expiresAt)
	return err
}

// IsTimedOut reports whether a user is currently silenced in a channel.
func (r *Repository) IsTimedOut(ctx context.Context, channelUserID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM chat_timeouts WHERE channel_user_id = $1 AND user_id = $2 AND expires_at > NOW())`
	var ok bool
	err := r.pool.QueryRow(ctx, q, channelUserID, userID).Scan(&ok)
	return ok, err
}
