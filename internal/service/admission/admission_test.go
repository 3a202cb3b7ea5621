package admission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashsale/internal/apperr"
	"flashsale/internal/domain"
	"flashsale/internal/queue"
	"flashsale/internal/repository/redis"
)

func newTestRedis(t *testing.T) *goredis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []domain.PurchaseJob
}

func (f *fakeQueue) AddJob(_ context.Context, job domain.PurchaseJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}
func (f *fakeQueue) Process(_ context.Context, _ queue.Handler) error { return nil }
func (f *fakeQueue) GetJob(_ context.Context, _ string) (domain.PurchaseJob, bool, error) {
	return domain.PurchaseJob{}, false, nil
}
func (f *fakeQueue) GetStats(_ context.Context) (queue.Stats, error) { return queue.Stats{}, nil }
func (f *fakeQueue) Close() error                                   { return nil }

func (f *fakeQueue) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type fakeSales struct {
	sale domain.FlashSale
	err  error
}

func (f fakeSales) CurrentSale(_ context.Context, _ string) (domain.FlashSale, error) {
	return f.sale, f.err
}

type fakeAttempts struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeAttempts) RecordAttempt(_ context.Context, _, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func activeSale() domain.FlashSale {
	return domain.FlashSale{
		SaleID:    "sale-1",
		ProductID: "product-1",
		StartTime: time.Now().Add(-time.Minute),
		EndTime:   time.Now().Add(time.Hour),
	}
}

func TestSubmitEnqueuesJobForActiveSale(t *testing.T) {
	client := newTestRedis(t)
	statusCache := redis.NewStatusCache(client, time.Hour)
	rateLimiter := redis.NewRateLimiter(client, 5, time.Minute)
	q := &fakeQueue{}
	attempts := &fakeAttempts{}
	svc := New(q, statusCache, rateLimiter, fakeSales{sale: activeSale()}, attempts)

	job, err := svc.Submit(context.Background(), "user-1", "product-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", job.UserID)
	assert.Equal(t, "sale-1", job.SaleID)
	assert.Equal(t, domain.JobStatusQueued, job.Status)
	assert.Equal(t, 1, q.count())
	assert.Equal(t, 1, attempts.calls, "every admitted attempt is recorded for audit")
}

func TestSubmitRejectsDuplicatePendingPurchase(t *testing.T) {
	client := newTestRedis(t)
	statusCache := redis.NewStatusCache(client, time.Hour)
	rateLimiter := redis.NewRateLimiter(client, 5, time.Minute)
	q := &fakeQueue{}
	svc := New(q, statusCache, rateLimiter, fakeSales{sale: activeSale()}, &fakeAttempts{})

	ctx := context.Background()
	_, err := svc.Submit(ctx, "user-1", "product-1")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "user-1", "product-1")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusiness))
	assert.ErrorIs(t, err, apperr.ErrAlreadyPending)
	assert.Equal(t, 1, q.count(), "a duplicate attempt must never reach the queue")
}

func TestSubmitRejectsOverRateLimit(t *testing.T) {
	client := newTestRedis(t)
	statusCache := redis.NewStatusCache(client, time.Hour)
	rateLimiter := redis.NewRateLimiter(client, 1, time.Minute)
	q := &fakeQueue{}
	svc := New(q, statusCache, rateLimiter, fakeSales{sale: activeSale()}, &fakeAttempts{})

	ctx := context.Background()
	_, err := svc.Submit(ctx, "user-1", "product-1")
	require.NoError(t, err)

	// Same user again: the rate limiter trips before the duplicate-pending
	// check would, since rate limiting now runs first.
	_, err = svc.Submit(ctx, "user-1", "product-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTooManyAttempts)
}

func TestSubmitRejectsWhenSaleNotActive(t *testing.T) {
	client := newTestRedis(t)
	statusCache := redis.NewStatusCache(client, time.Hour)
	rateLimiter := redis.NewRateLimiter(client, 5, time.Minute)
	q := &fakeQueue{}
	upcoming := domain.FlashSale{
		SaleID:    "sale-1",
		ProductID: "product-1",
		StartTime: time.Now().Add(time.Hour),
		EndTime:   time.Now().Add(2 * time.Hour),
	}
	svc := New(q, statusCache, rateLimiter, fakeSales{sale: upcoming}, &fakeAttempts{})

	_, err := svc.Submit(context.Background(), "user-1", "product-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrSaleNotOpen)
	assert.Equal(t, 0, q.count())
}

func TestStatusForUserProductReportsNoneWhenAbsent(t *testing.T) {
	client := newTestRedis(t)
	statusCache := redis.NewStatusCache(client, time.Hour)
	rateLimiter := redis.NewRateLimiter(client, 5, time.Minute)
	svc := New(&fakeQueue{}, statusCache, rateLimiter, fakeSales{sale: activeSale()}, &fakeAttempts{})

	_, ok, err := svc.StatusForUserProduct(context.Background(), "user-1", "product-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
