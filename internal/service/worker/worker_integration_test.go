//go:build integration

// These tests exercise the worker's critical section against a real
// Postgres instance and a real Redis instance, the way
// fairyhunter13-scalable-coupon-system's tests/integration/concurrency_test.go
// drives its claim endpoint concurrently and asserts on final database state.
// They are skipped unless -tags=integration is set and INTEGRATION_DATABASE_URL
// / INTEGRATION_REDIS_ADDR point at live instances, since no in-memory fake
// reproduces pg_advisory_xact_lock semantics.
package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashsale/internal/domain"
	"flashsale/internal/repository/postgres"
	redisrepo "flashsale/internal/repository/redis"
)

func setupIntegration(t *testing.T) (*pgxpool.Pool, *goredis.Client) {
	t.Helper()
	dbURL := os.Getenv("INTEGRATION_DATABASE_URL")
	redisAddr := os.Getenv("INTEGRATION_REDIS_ADDR")
	if dbURL == "" || redisAddr == "" {
		t.Skip("INTEGRATION_DATABASE_URL and INTEGRATION_REDIS_ADDR must be set")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.InitSchema(context.Background(), pool))

	client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	t.Cleanup(func() { client.Close() })

	return pool, client
}

// TestConcurrentPurchasesNeverOversell mirrors spec.md's property test 1:
// stock=1, many concurrent jobs, exactly one completes.
func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	pool, client := setupIntegration(t)
	ctx := context.Background()

	productID := uuid.NewString()
	saleID := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO products (product_id, name, price) VALUES ($1, 'widget', 9.99)`, productID)
	require.NoError(t, err)

	stockRepo := postgres.NewStockRepository(pool)
	require.NoError(t, stockRepo.Create(ctx, productID, 1))

	salesRepo := postgres.NewFlashSaleRepository(pool)
	require.NoError(t, salesRepo.Create(ctx, domain.FlashSale{
		SaleID:    saleID,
		ProductID: productID,
		StartTime: time.Now().Add(-time.Minute),
		EndTime:   time.Now().Add(time.Hour),
	}))

	ordersRepo := postgres.NewOrderRepository(pool)
	statusCache := redisrepo.NewStatusCache(client, time.Hour)
	saleCache := redisrepo.NewSaleCache(client, time.Minute)
	w := New(pool, salesRepo, stockRepo, ordersRepo, statusCache, saleCache, 10*time.Second)

	const concurrency = 50
	var wg sync.WaitGroup
	results := make(chan error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job := domain.PurchaseJob{
				JobID:     uuid.NewString(),
				UserID:    fmt.Sprintf("user-%d", i),
				ProductID: productID,
				SaleID:    saleID,
				Status:    domain.JobStatusQueued,
			}
			results <- w.Handle(ctx, job)
		}(i)
	}
	wg.Wait()
	close(results)

	for err := range results {
		assert.NoError(t, err, "Handle should never return a transient error in this setup")
	}

	stock, err := stockRepo.Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock.AvailableQuantity, "stock must never go negative or leave an unsold unit")

	var confirmedCount int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE product_id = $1 AND status = 'confirmed'`, productID).Scan(&confirmedCount)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmedCount, "exactly one order should be confirmed")
}

// TestDuplicateUserPurchaseRejected mirrors spec.md's property test 2: the
// same user racing multiple jobs for one product ends with exactly one
// confirmed order (invariant O1).
func TestDuplicateUserPurchaseRejected(t *testing.T) {
	pool, client := setupIntegration(t)
	ctx := context.Background()

	productID := uuid.NewString()
	saleID := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO products (product_id, name, price) VALUES ($1, 'widget', 9.99)`, productID)
	require.NoError(t, err)

	stockRepo := postgres.NewStockRepository(pool)
	require.NoError(t, stockRepo.Create(ctx, productID, 10))

	salesRepo := postgres.NewFlashSaleRepository(pool)
	require.NoError(t, salesRepo.Create(ctx, domain.FlashSale{
		SaleID:    saleID,
		ProductID: productID,
		StartTime: time.Now().Add(-time.Minute),
		EndTime:   time.Now().Add(time.Hour),
	}))

	ordersRepo := postgres.NewOrderRepository(pool)
	statusCache := redisrepo.NewStatusCache(client, time.Hour)
	saleCache := redisrepo.NewSaleCache(client, time.Minute)
	w := New(pool, salesRepo, stockRepo, ordersRepo, statusCache, saleCache, 10*time.Second)

	const attempts = 5
	userID := uuid.NewString()
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := domain.PurchaseJob{
				JobID:     uuid.NewString(),
				UserID:    userID,
				ProductID: productID,
				SaleID:    saleID,
				Status:    domain.JobStatusQueued,
			}
			_ = w.Handle(ctx, job)
		}()
	}
	wg.Wait()

	var confirmedCount int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE product_id = $1 AND user_id = $2 AND status = 'confirmed'`, productID, userID).Scan(&confirmedCount)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmedCount, "a user may confirm at most one order per product")
}
