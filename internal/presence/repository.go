package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bilda/backend/internal/models"
)

const sessionColumns = `id, user_id, project_id, started_at, last_seen_at, viewers_count, peak_viewers, created_at, updated_at`

// Repository handles live_sessions persistence. The table is mutated by many
// independent clients, so every write is idempotent: starting twice upserts,
// stopping a stopped session is a no-op, and concurrent reconciles delete
// disjoint (or already-gone) rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a live sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSession(row pgx.Row) (*models.LiveSession, error) {
	var s models.LiveSession
	err := row.Scan(&s.ID, &s.UserID, &s.ProjectID, &s.StartedAt, &s.LastSeenAt,
		&s.ViewersCount, &s.PeakViewers, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Start upserts the user's live session. The user_id unique constraint keeps
// one active session per user: starting while already live switches the
// project and refreshes the heartbeat instead of creating a duplicate row.
func (r *Repository) Start(ctx context.Context, userID, projectID uuid.UUID) (*models.LiveSession, error) {
	const q = `INSERT INTO live_sessions (user_id, project_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET project_id = EXCLUDED.project_id, last_seen_at = NOW(), updated_at = NOW()
		RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, q, userID, projectID))
}

// Heartbeat bumps last_seen_at for the user's session. Returns nil, nil when
// the user is not live (the session may have been reconciled away).
func (r *Repository) Heartbeat(ctx context.Context, userID uuid.UUID) (*models.LiveSession, error) {
	const q = `UPDATE live_sessions SET last_seen_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Stop removes the user's live session. Deleting an absent row is a no-op.
func (r *Repository) Stop(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM live_sessions WHERE user_id = $1`, userID)
	return err
}

// GetByUserID returns the user's live session, or nil, nil when not live.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.LiveSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM live_sessions WHERE user_id = $1`
	s, err := scanSession(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListActive returns all live sessions, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]models.LiveSession, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM live_sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.LiveSession
	for rows.Next() {
		var s models.LiveSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProjectID, &s.StartedAt, &s.LastSeenAt,
			&s.ViewersCount, &s.PeakViewers, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Reconcile deletes sessions whose last heartbeat is older than staleAfter
// and returns the number removed. Safe under concurrent repetition from any
// client: already-deleted rows simply do not match.
func (r *Repository) Reconcile(ctx context.Context, staleAfter time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM live_sessions WHERE last_seen_at < NOW() - make_interval(secs => $1)`,
		staleAfter.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SetViewers updates the current viewer count and raises the session peak.
func (r *Repository) SetViewers(ctx context.Context, userID uuid.UUID, count int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE live_sessions SET viewers_count = $1, peak_viewers = GREATEST(peak_viewers, $1), updated_at = NOW()
		 WHERE user_id = $2`,
		count, userID)
	return err
}
