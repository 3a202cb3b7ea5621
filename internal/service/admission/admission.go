// Package admission implements the fast HTTP-facing half of a purchase
// request (spec.md §4.1): reject duplicates and rate-limit abuse cheaply,
// then hand the request to the durable queue and return immediately. It
// never touches stock itself — that is the worker's job.
package admission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"flashsale/internal/apperr"
	"flashsale/internal/domain"
	"flashsale/internal/platform/logger"
	"flashsale/internal/queue"
	"flashsale/internal/repository/redis"
)

// SaleLookup resolves the current sale for a product, consulted to reject
// purchases outside the sale window before a job is ever enqueued.
type SaleLookup interface {
	CurrentSale(ctx context.Context, productID string) (domain.FlashSale, error)
}

// AttemptRecorder persists a durable audit trail of purchase attempts,
// independent of the in-flight Redis rate limiter (spec.md §9, Open Question
// 1). Satisfied by *postgres.OrderRepository.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, userID, productID string, windowStart time.Time) error
}

// attemptWindow matches the fixed window the Redis rate limiter counts
// against, so the audit table and the enforcement path agree on what "one
// window" means.
const attemptWindow = time.Minute

// Service is the admission half of the purchase pipeline.
type Service struct {
	queue       queue.Queue
	statusCache *redis.StatusCache
	rateLimiter *redis.RateLimiter
	sales       SaleLookup
	attempts    AttemptRecorder
}

func New(q queue.Queue, statusCache *redis.StatusCache, rateLimiter *redis.RateLimiter, sales SaleLookup, attempts AttemptRecorder) *Service {
	return &Service{queue: q, statusCache: statusCache, rateLimiter: rateLimiter, sales: sales, attempts: attempts}
}

// Submit runs the admission checks of spec.md §4.1 in order — rate limit,
// duplicate check, sale window — and on success enqueues a PurchaseJob and
// returns its id for the caller to poll. Rate limiting runs first (Open
// Question 1) so an abusive client burning through requests is turned away
// before it ever touches the status cache.
func (s *Service) Submit(ctx context.Context, userID, productID string) (domain.PurchaseJob, error) {
	log := logger.FromContext(ctx)

	allowed, err := s.rateLimiter.Allow(ctx, userID, productID)
	if err != nil {
		return domain.PurchaseJob{}, apperr.Transient(err)
	}
	s.recordAttempt(ctx, userID, productID)
	if !allowed {
		return domain.PurchaseJob{}, apperr.Business(apperr.ErrTooManyAttempts)
	}

	if jobID, active, err := s.statusCache.ActiveJobFor(ctx, userID, productID); err != nil {
		return domain.PurchaseJob{}, apperr.Transient(err)
	} else if active {
		if job, ok, err := s.statusCache.GetByJobID(ctx, jobID); err == nil && ok {
			return job, apperr.Business(apperr.ErrAlreadyPending)
		}
		return domain.PurchaseJob{}, apperr.Business(apperr.ErrAlreadyPending)
	}

	sale, err := s.sales.CurrentSale(ctx, productID)
	if err != nil {
		return domain.PurchaseJob{}, apperr.Business(apperr.ErrNoActiveSale)
	}
	if sale.Status(time.Now()) != domain.SaleStatusActive {
		return domain.PurchaseJob{}, apperr.Business(apperr.ErrSaleNotOpen)
	}

	job := domain.PurchaseJob{
		JobID:      uuid.NewString(),
		UserID:     userID,
		ProductID:  productID,
		SaleID:     sale.SaleID,
		EnqueuedAt: time.Now(),
		Status:     domain.JobStatusQueued,
	}

	if err := s.statusCache.Put(ctx, job); err != nil {
		return domain.PurchaseJob{}, apperr.Transient(err)
	}
	if err := s.queue.AddJob(ctx, job); err != nil {
		return domain.PurchaseJob{}, apperr.Transient(err)
	}

	log.Info().Str("job_id", job.JobID).Str("user_id", userID).Str("product_id", productID).Msg("purchase admitted")
	return job, nil
}

// recordAttempt writes to the durable audit trail best-effort: a failure
// here must never block or fail a purchase request, since Redis already
// made the enforcement decision.
func (s *Service) recordAttempt(ctx context.Context, userID, productID string) {
	windowStart := time.Now().Truncate(attemptWindow)
	if err := s.attempts.RecordAttempt(ctx, userID, productID, windowStart); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("user_id", userID).Str("product_id", productID).
			Msg("admission: failed to record attempt audit row")
	}
}

// Status returns the cached state of jobID for polling, falling back to the
// caller-supplied loader when the cache entry has expired.
func (s *Service) Status(ctx context.Context, jobID string, fallback func(ctx context.Context, jobID string) (domain.PurchaseJob, error)) (domain.PurchaseJob, error) {
	if job, ok, err := s.statusCache.GetByJobID(ctx, jobID); err == nil && ok {
		return job, nil
	}
	return fallback(ctx, jobID)
}

// StatusForUserProduct finds the in-flight or completed job for
// userID+productID, backing GET /purchase/status. It returns ok=false if the
// user has no such cached job for this product, which includes the case where
// the latest attempt failed, since a failed job frees the user+product key
// (callers should treat that as "no purchase made" rather than an error).
func (s *Service) StatusForUserProduct(ctx context.Context, userID, productID string) (domain.PurchaseJob, bool, error) {
	jobID, active, err := s.statusCache.ActiveJobFor(ctx, userID, productID)
	if err != nil {
		return domain.PurchaseJob{}, false, apperr.Transient(err)
	}
	if !active {
		return domain.PurchaseJob{}, false, nil
	}
	job, ok, err := s.statusCache.GetByJobID(ctx, jobID)
	if err != nil {
		return domain.PurchaseJob{}, false, apperr.Transient(err)
	}
	return job, ok, nil
}
