package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bilda/backend/internal/models"
)

const userColumns = `id, email, password_hash, handle, display_name,
	COALESCE(avatar_url,''), COALESCE(bio,''), COALESCE(github_login,''), role, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Handle, &u.DisplayName,
		&u.AvatarURL, &u.Bio, &u.GitHubLogin, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// GetByEmail returns a user by email, or nil, nil when not registered.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// GetByHandle returns a user by handle, or nil, nil when unknown.
func (r *Repository) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE handle = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, q, handle))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, handle, displayName string, role models.Role) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, handle, display_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, handle, displayName, string(role)))
}
