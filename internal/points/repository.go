package points

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bilda/backend/internal/models"
)

// Repository handles the channel points ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a points repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Balance returns the sum of a user's ledger deltas.
func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	const q = `SELECT COALESCE(SUM(delta), 0) FROM points_ledger WHERE user_id = $1`
	var balance int64
	err := r.pool.QueryRow(ctx, q, userID).Scan(&balance)
	return balance, err
}

// CreditWatch credits watch-time points keyed on the viewer log ID. The
// unique (user_id, reason, ref_id) constraint makes retries no-ops; returns
// false when the credit was already applied.
func (r *Repository) CreditWatch(ctx context.Context, userID, viewerLogID uuid.UUID, amount int64) (bool, error) {
	const q = `INSERT INTO points_ledger (user_id, delta, reason, ref_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, reason, ref_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, userID, amount, models.PointsReasonWatch, viewerLogID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Redeem debits amount from a user's balance; returns false on insufficient
// balance. Redeems for one user are serialized with a transaction-scoped
// advisory lock: at READ COMMITTED two concurrent balance-guarded inserts
// would each snapshot the pre-race sum and both land, overdrawing the
// account. The lock makes the second redeem wait and re-read the sum after
// the first commits. Credits insert without the lock and are unaffected.
func (r *Repository) Redeem(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, userID); err != nil {
		return false, err
	}
	const q = `INSERT INTO points_ledger (user_id, delta, reason, ref_id)
		SELECT $1, -$2, $3, $4
		WHERE (SELECT COALESCE(SUM(delta), 0) FROM points_ledger WHERE user_id = $1) >= $2`
	tag, err := tx.Exec(ctx, q, userID, amount, models.PointsReasonRedeem, uuid.New())
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// History returns a user's most recent ledger entries, newest first.
func (r *Repository) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.PointsEntry, error) {
	const q = `SELECT id, user_id, delta, reason, ref_id, created_at
		FROM points_ledger WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.PointsEntry
	for rows.Next() {
		var e models.PointsEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
