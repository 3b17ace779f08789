package features

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bilda/backend/internal/models"
)

// Repository handles feature request persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a features repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new feature request.
func (r *Repository) Create(ctx context.Context, f *models.FeatureRequest) error {
	const q = `INSERT INTO feature_requests (user_id, title, details)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, status, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, f.UserID, f.Title, f.Details).
		Scan(&f.ID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
}

// GetByID returns a feature request with its vote count, or nil, nil when
// absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.FeatureRequest, error) {
	const q = `SELECT f.id, f.user_id, f.title, COALESCE(f.details, ''), f.status,
			(SELECT COUNT(*) FROM feature_votes v WHERE v.feature_id = f.id),
			f.created_at, f.updated_at
		FROM feature_requests f WHERE f.id = $1`
	var f models.FeatureRequest
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&f.ID, &f.UserID, &f.Title, &f.Details, &f.Status, &f.Votes, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// List returns feature requests ordered by votes, most voted first.
func (r *Repository) List(ctx context.Context) ([]models.FeatureRequest, error) {
	const q = `SELECT f.id, f.user_id, f.title, COALESCE(f.details, ''), f.status,
			COUNT(v.user_id) AS votes, f.created_at, f.updated_at
		FROM feature_requests f
		LEFT JOIN feature_votes v ON v.feature_id = f.id
		GROUP BY f.id
		ORDER BY votes DESC, f.created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.FeatureRequest
	for rows.Next() {
		var f models.FeatureRequest
		if err := rows.Scan(&f.ID, &f.UserID, &f.Title, &f.Details, &f.Status, &f.Votes, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

// Upvote records one vote per user per feature. Idempotent; returns the new
// vote count.
func (r *Repository) Upvote(ctx context.Context, featureID, userID uuid.UUID) (int, error) {
	const q = `INSERT INTO feature_votes (feature_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (feature_id, user_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, q, featureID, userID); err != nil {
		return 0, err
	}
	var votes int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM feature_votes WHERE feature_id = $1`, featureID).Scan(&votes)
	return votes, err
}

// UpdateStatus moves a feature request through its lifecycle.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.FeatureStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE feature_requests SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}
