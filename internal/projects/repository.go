package projects

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bilda/backend/internal/models"
)

const projectColumns = `id, user_id, name, COALESCE(emoji,''), COALESCE(description,''), COALESCE(repo_url,''), created_at, updated_at`

// Repository handles projects persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a projects repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Emoji, &p.Description, &p.RepoURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new project.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, name, emoji, description, repoURL string) (*models.Project, error) {
	const q = `INSERT INTO projects (user_id, name, emoji, description, repo_url)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''))
		RETURNING ` + projectColumns
	return scanProject(r.pool.QueryRow(ctx, q, userID, name, emoji, description, repoURL))
}

// GetProjectByID returns a project by ID, or nil, nil when gone. This is the
// enrichment lookup for the live feed.
func (r *Repository) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	const q = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := scanProject(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListByUser returns a user's projects, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Emoji, &p.Description, &p.RepoURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Update sets mutable fields on a project owned by userID. Returns nil, nil
// when the project does not exist or is not owned by the user.
func (r *Repository) Update(ctx context.Context, id, userID uuid.UUID, name, emoji, description, repoURL string) (*models.Project, error) {
	const q = `UPDATE projects
		SET name = $1, emoji = NULLIF($2,''), description = NULLIF($3,''), repo_url = NULLIF($4,''), updated_at = NOW()
		WHERE id = $5 AND user_id = $6
		RETURNING ` + projectColumns
	p, err := scanProject(r.pool.QueryRow(ctx, q, name, emoji, description, repoURL, id, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Delete removes a project owned by userID.
func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}
