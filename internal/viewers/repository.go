package viewers

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bilda/backend/internal/models"
)

// Repository handles viewer_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a viewer log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogJoin inserts a row when a viewer joins a channel's broadcast and returns
// the log ID.
func (r *Repository) LogJoin(ctx context.Context, channelUserID, sessionID, userID uuid.UUID) (uuid.UUID, error) {
	const q = `INSERT INTO viewer_logs (channel_user_id, session_id, user_id, joined_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, q, channelUserID, sessionID, userID).Scan(&id)
	return id, err
}

// LogLeave closes the most recent open log for this viewer in this channel
// and returns the closed log's ID and watch duration. Returns uuid.Nil, 0,
// nil when no open log exists.
func (r *Repository) LogLeave(ctx context.Context, channelUserID, userID uuid.UUID) (uuid.UUID, int64, error) {
	const q = `UPDATE viewer_logs v
		SET left_at = NOW(), watch_seconds = GREATEST(0, EXTRACT(EPOCH FROM (NOW() - v.joined_at))::BIGINT)
		FROM (SELECT id FROM viewer_logs WHERE channel_user_id = $1 AND user_id = $2 AND left_at IS NULL ORDER BY joined_at DESC LIMIT 1) AS sub
		WHERE v.id = sub.id
		RETURNING v.id, v.watch_seconds`
	var id uuid.UUID
	var watchSeconds int64
	err := r.pool.QueryRow(ctx, q, channelUserID, userID).Scan(&id, &watchSeconds)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, 0, nil
		}
		return uuid.Nil, 0, err
	}
	return id, watchSeconds, nil
}

// ChannelAggregates holds watch time totals for a channel.
type ChannelAggregates struct {
	TotalWatchSeconds int64 `json:"total_watch_seconds"`
	DistinctViewers   int   `json:"distinct_viewers"`
}

// GetChannelAggregates returns total watch time and distinct viewer count
// across all of a channel's broadcasts.
func (r *Repository) GetChannelAggregates(ctx context.Context, channelUserID uuid.UUID) (*ChannelAggregates, error) {
	const q = `SELECT COALESCE(SUM(watch_seconds), 0), COUNT(DISTINCT user_id)
		FROM viewer_logs WHERE channel_user_id = $1 AND left_at IS NOT NULL`
	var agg ChannelAggregates
	err := r.pool.QueryRow(ctx, q, channelUserID).Scan(&agg.TotalWatchSeconds, &agg.DistinctViewers)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// ListByChannel returns a channel's viewer logs, newest first.
func (r *Repository) ListByChannel(ctx context.Context, channelUserID uuid.UUID, limit int) ([]models.ViewerLog, error) {
	const q = `SELECT id, channel_user_id, session_id, user_id, joined_at, left_at, watch_seconds
		FROM viewer_logs WHERE channel_user_id = $1
		ORDER BY joined_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, channelUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ViewerLog
	for rows.Next() {
		var v models.ViewerLog
		if err := rows.Scan(&v.ID, &v.ChannelUserID, &v.SessionID, &v.UserID, &v.JoinedAt, &v.LeftAt, &v.WatchSeconds); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}
