// Package worker implements the critical section of a purchase (spec.md
// §4.3): acquire a per-product advisory lock, conditionally decrement
// stock, insert the order, and compensate on failure. Grounded on the
// teacher's ProcessPurchase transaction, generalized from a boolean
// "sold" flag to a decrementing quantity and from an HTTP-synchronous call
// to a queue-driven job.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashsale/internal/apperr"
	"flashsale/internal/domain"
	"flashsale/internal/platform/logger"
	"flashsale/internal/repository/postgres"
	redisrepo "flashsale/internal/repository/redis"
)

// rollbackTimeout bounds the rollback issued on a background context when a
// job's own context has already expired — the advisory lock and any
// uncommitted decrement must still be released even though the caller gave
// up waiting.
const rollbackTimeout = 5 * time.Second

// SaleLookup is the subset of the flash sale repository the worker needs to
// re-verify the sale window inside the critical section — admission's check
// is only advisory; this one is authoritative.
type SaleLookup interface {
	GetByID(ctx context.Context, saleID string) (domain.FlashSale, error)
}

// Worker processes PurchaseJobs pulled from the queue.
type Worker struct {
	pool        *pgxpool.Pool
	sales       SaleLookup
	stock       *postgres.StockRepository
	orders      *postgres.OrderRepository
	statusCache *redisrepo.StatusCache
	saleCache   *redisrepo.SaleCache
	jobTimeout  time.Duration
}

func New(
	pool *pgxpool.Pool,
	sales SaleLookup,
	stock *postgres.StockRepository,
	orders *postgres.OrderRepository,
	statusCache *redisrepo.StatusCache,
	saleCache *redisrepo.SaleCache,
	jobTimeout time.Duration,
) *Worker {
	return &Worker{
		pool:        pool,
		sales:       sales,
		stock:       stock,
		orders:      orders,
		statusCache: statusCache,
		saleCache:   saleCache,
		jobTimeout:  jobTimeout,
	}
}

// Handle is the queue.Handler entry point: one purchase job, start to
// finish. Returning an *apperr.Error with KindTransient tells the queue to
// retry; anything else is terminal.
func (w *Worker) Handle(ctx context.Context, job domain.PurchaseJob) error {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()

	job.Status = domain.JobStatusProcessing
	if err := w.statusCache.Put(ctx, job); err != nil {
		log.Warn().Err(err).Msg("worker: failed to mark job processing")
	}

	// spec.md §5's hard per-job timeout: beyond this, the job is abandoned
	// rather than left to retry indefinitely against a possibly-stuck lock.
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	orderID, failureReason, err := w.process(jobCtx, job)
	if err != nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		log.Error().Msg("worker: hard per-job timeout exceeded, abandoning job")
		failureReason = domain.ReasonInternal
		err = apperr.Business(apperr.ErrUnavailable)
	}

	if err != nil {
		if apperr.IsKind(err, apperr.KindTransient) {
			log.Warn().Err(err).Msg("worker: transient failure, job will be retried")
			return err
		}
		job.Status = domain.JobStatusFailed
		job.FailureReason = failureReason
		if cacheErr := w.statusCache.Put(ctx, job); cacheErr != nil {
			log.Error().Err(cacheErr).Msg("worker: failed to write terminal failure status")
		}
		log.Info().Str("reason", string(failureReason)).Msg("worker: purchase rejected")
		return nil
	}

	job.Status = domain.JobStatusCompleted
	job.OrderID = orderID
	if err := w.statusCache.Put(ctx, job); err != nil {
		log.Error().Err(err).Msg("worker: failed to write terminal success status")
	}
	if err := w.saleCache.Invalidate(ctx, job.ProductID); err != nil {
		log.Warn().Err(err).Msg("worker: failed to invalidate sale cache")
	}
	log.Info().Str("order_id", orderID).Msg("worker: purchase confirmed")
	return nil
}

// process runs spec.md §4.3 steps 2-6 inside a single transaction and
// returns either a confirmed order id or a terminal failure reason.
func (w *Worker) process(ctx context.Context, job domain.PurchaseJob) (orderID string, reason domain.FailureReason, err error) {
	sale, err := w.sales.GetByID(ctx, job.SaleID)
	if err != nil {
		return "", domain.ReasonInternal, apperr.Transient(err)
	}
	if sale.Status(time.Now()) != domain.SaleStatusActive {
		return "", domain.ReasonSaleNotOpen, apperr.Business(apperr.ErrSaleNotOpen)
	}

	if count, err := w.orders.CountActiveForUser(ctx, job.UserID, job.ProductID); err != nil {
		return "", domain.ReasonInternal, apperr.Transient(err)
	} else if count > 0 {
		return "", domain.ReasonAlreadyPurchased, apperr.Business(apperr.ErrAlreadyPurchased)
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return "", domain.ReasonInternal, apperr.Transient(err)
	}
	// Roll back on a fresh context, not ctx: if the hard per-job timeout has
	// already fired, ctx is done and can no longer talk to Postgres, but the
	// transaction — and any decrement it holds uncommitted — still has to be
	// released rather than left open until the connection's own idle timeout.
	defer func() {
		rollbackCtx, rollbackCancel := context.WithTimeout(context.Background(), rollbackTimeout)
		defer rollbackCancel()
		tx.Rollback(rollbackCtx)
	}()

	if err := w.stock.AdvisoryLock(ctx, tx, job.ProductID); err != nil {
		return "", domain.ReasonInternal, apperr.Transient(err)
	}

	decremented, err := w.stock.DecrementAvailable(ctx, tx, job.ProductID)
	if err != nil {
		return "", domain.ReasonInternal, apperr.Transient(err)
	}
	if !decremented {
		if err := tx.Commit(ctx); err != nil {
			return "", domain.ReasonInternal, apperr.Transient(err)
		}
		return "", domain.ReasonOutOfStock, apperr.Business(apperr.ErrOutOfStock)
	}

	newOrderID := uuid.NewString()
	insertErr := w.orders.Insert(ctx, tx, newOrderID, job.JobID, job.UserID, job.ProductID)
	if insertErr != nil {
		if postgres.IsUniqueViolation(insertErr) {
			if compErr := w.stock.IncrementAvailable(ctx, tx, job.ProductID); compErr != nil {
				return "", domain.ReasonInternal, apperr.Transient(compErr)
			}
			if err := tx.Commit(ctx); err != nil {
				return "", domain.ReasonInternal, apperr.Transient(err)
			}
			return "", domain.ReasonAlreadyPurchased, apperr.Business(apperr.ErrAlreadyPurchased)
		}
		return "", domain.ReasonInternal, apperr.Transient(insertErr)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", domain.ReasonInternal, apperr.Transient(err)
	}
	return newOrderID, "", nil
}
