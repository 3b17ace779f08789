package points

import (
	"context"
	"os"
	"sync"
	"testing"

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

func createTestUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (email, password_hash, handle, display_name)
		 VALUES ($1, 'x', $2, 'Points Tester') RETURNING id`,
		uuid.New().String()+"@test.local", "u"+uuid.New().String()[:12]).Scan(&id)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func TestCreditWatchIdempotent(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	user := createTestUser(t, pool)
	ref := uuid.New()

	credited, err := repo.CreditWatch(ctx, user, ref, 50)
	if err != nil {
		t.Fatalf("CreditWatch() error = %v", err)
	}
	if !credited {
		t.Fatalf("first CreditWatch() = false, want true")
	}

	// Redelivered job with the same viewer log must be a no-op.
	credited, err = repo.CreditWatch(ctx, user, ref, 50)
	if err != nil {
		t.Fatalf("CreditWatch() retry error = %v", err)
	}
	if credited {
		t.Fatalf("retried CreditWatch() = true, want false")
	}

	balance, err := repo.Balance(ctx, user)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if balance != 50 {
		t.Fatalf("Balance() = %d after duplicate credit, want 50", balance)
	}
}

func TestRedeemInsufficientBalance(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	user := createTestUser(t, pool)

	if _, err := repo.CreditWatch(ctx, user, uuid.New(), 30); err != nil {
		t.Fatalf("CreditWatch() error = %v", err)
	}

	ok, err := repo.Redeem(ctx, user, 31)
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if ok {
		t.Fatalf("Redeem(31) with balance 30 succeeded")
	}

	ok, err = repo.Redeem(ctx, user, 30)
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if !ok {
		t.Fatalf("Redeem(30) with balance 30 failed")
	}
}

func TestRedeemConcurrentCannotOverdraw(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	user := createTestUser(t, pool)

	// Each round funds exactly one redemption, then races two for it. The
	// per-user advisory lock must let exactly one through every time.
	for round := 0; round < 10; round++ {
		if _, err := repo.CreditWatch(ctx, user, uuid.New(), 100); err != nil {
			t.Fatalf("round %d: CreditWatch() error = %v", round, err)
		}

		var wg sync.WaitGroup
		results := make([]bool, 2)
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = repo.Redeem(ctx, user, 100)
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("round %d: Redeem() goroutine %d error = %v", round, i, err)
			}
		}
		succeeded := 0
		for _, ok := range results {
			if ok {
				succeeded++
			}
		}
		if succeeded != 1 {
			t.Fatalf("round %d: %d of 2 concurrent redeems succeeded, want exactly 1", round, succeeded)
		}

		balance, err := repo.Balance(ctx, user)
		if err != nil {
			t.Fatalf("round %d: Balance() error = %v", round, err)
		}
		if balance != 0 {
			t.Fatalf("round %d: Balance() = %d after racing redeems, want 0", round, balance)
		}
	}
}
