package presence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bilda/backend/pkg/database"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func createTestBuilder(t *testing.T, pool *pgxpool.Pool) (userID, projectID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	err := pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, handle, display_name)
		 VALUES ($1, 'x', $2, 'Presence Tester') RETURNING id`,
		uuid.New().String()+"@test.local", "p"+uuid.New().String()[:12]).Scan(&userID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	})
	err = pool.QueryRow(ctx,
		`INSERT INTO projects (user_id, name) VALUES ($1, 'test project') RETURNING id`,
		userID).Scan(&projectID)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return userID, projectID
}

func ageSession(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, age time.Duration) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`UPDATE live_sessions SET last_seen_at = NOW() - make_interval(secs => $1) WHERE user_id = $2`,
		age.Seconds(), userID)
	if err != nil {
		t.Fatalf("age session: %v", err)
	}
}

func TestStartUpsertsSingleSession(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	user, project := createTestBuilder(t, pool)

	first, err := repo.Start(ctx, user, project)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	second, err := repo.Start(ctx, user, project)
	if err != nil {
		t.Fatalf("Start() again error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second Start() created a new row: %s != %s", second.ID, first.ID)
	}

	var count int
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM live_sessions WHERE user_id = $1`, user).Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("live_sessions rows for user = %d, want 1", count)
	}
}

// Reconcile removes sessions whose heartbeat is strictly older than the
// threshold. Exact-age rows are untestable against NOW(), so both sides are
// checked with a 30 second margin.
func TestReconcileStalenessBoundary(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	staleAfter := 2 * time.Minute

	freshUser, freshProject := createTestBuilder(t, pool)
	staleUser, staleProject := createTestBuilder(t, pool)

	if _, err := repo.Start(ctx, freshUser, freshProject); err != nil {
		t.Fatalf("Start() fresh error = %v", err)
	}
	if _, err := repo.Start(ctx, staleUser, staleProject); err != nil {
		t.Fatalf("Start() stale error = %v", err)
	}
	ageSession(t, pool, freshUser, staleAfter-30*time.Second)
	ageSession(t, pool, staleUser, staleAfter+30*time.Second)

	removed, err := repo.Reconcile(ctx, staleAfter)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("Reconcile() removed = %d, want 1", removed)
	}

	fresh, err := repo.GetByUserID(ctx, freshUser)
	if err != nil {
		t.Fatalf("GetByUserID() fresh error = %v", err)
	}
	if fresh == nil {
		t.Fatalf("session inside the threshold was reconciled away")
	}
	stale, err := repo.GetByUserID(ctx, staleUser)
	if err != nil {
		t.Fatalf("GetByUserID() stale error = %v", err)
	}
	if stale != nil {
		t.Fatalf("session past the threshold survived reconcile")
	}

	// Idempotent: a second pass over the same state removes nothing.
	removed, err = repo.Reconcile(ctx, staleAfter)
	if err != nil {
		t.Fatalf("Reconcile() again error = %v", err)
	}
	if removed != 0 {
		t.Fatalf("second Reconcile() removed = %d, want 0", removed)
	}
}

func TestHeartbeatAfterReconcileReturnsNil(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	user, project := createTestBuilder(t, pool)

	if _, err := repo.Start(ctx, user, project); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ageSession(t, pool, user, time.Hour)
	if _, err := repo.Reconcile(ctx, time.Minute); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	s, err := repo.Heartbeat(ctx, user)
	if err != nil {
		t.Fatalf("Heartbeat() error = %v", err)
	}
	if s != nil {
		t.Fatalf("Heartbeat() on reconciled session = %+v, want nil", s)
	}
}
