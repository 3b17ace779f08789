package profiles

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bilda/backend/internal/models"
)

// Repository handles public profile reads and owner updates over the users
// table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a profiles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProfileByUserID returns the public profile snapshot for a user, or
// nil, nil when the user is gone. This is the enrichment lookup for the live
// feed.
func (r *Repository) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const q = `SELECT id, handle, display_name, COALESCE(avatar_url,'') FROM users WHERE id = $1`
	var p models.Profile
	err := r.pool.QueryRow(ctx, q, userID).Scan(&p.UserID, &p.Handle, &p.DisplayName, &p.AvatarURL)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetByHandle returns the public profile for a handle, or nil, nil.
func (r *Repository) GetByHandle(ctx context.Context, handle string) (*models.Profile, error) {
	const q = `SELECT id, handle, display_name, COALESCE(avatar_url,'') FROM users WHERE handle = $1`
	var p models.Profile
	err := r.pool.QueryRow(ctx, q, handle).Scan(&p.UserID, &p.Handle, &p.DisplayName, &p.AvatarURL)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpdateParams holds profile fields an owner may change.
type UpdateParams struct {
	DisplayName string
	Bio         string
}

// Update sets display name and bio for a user.
func (r *Repository) Update(ctx context.Context, userID uuid.UUID, params UpdateParams) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET display_name = $1, bio = NULLIF($2,''), updated_at = NOW() WHERE id = $3`,
		params.DisplayName, params.Bio, userID)
	return err
}

// UpdateAvatarURL sets the avatar URL after a successful upload.
func (r *Repository) UpdateAvatarURL(ctx context.Context, userID uuid.UUID, url string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET avatar_url = $1, updated_at = NOW() WHERE id = $2`,
		url, userID)
	return err
}
