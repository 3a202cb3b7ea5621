package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashsale/internal/domain"
)

// uniqueViolation is Postgres SQLSTATE 23505.
const uniqueViolation = "23505"

// OrderRepository owns order rows (spec.md §3). The unique constraint on
// (userId, productId) in the schema is the last line of defence against
// duplicate purchases (invariant O1) — IsUniqueViolation lets the worker tell
// a genuine duplicate apart from any other insert failure.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert creates a confirmed order keyed by jobId, making retries of the same
// job idempotent per spec.md §4.3's "Failure semantics" guidance.
func (r *OrderRepository) Insert(ctx context.Context, tx pgx.Tx, orderID, jobID, userID, productID string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO orders (order_id, job_id, user_id, product_id, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (job_id) DO NOTHING`,
		orderID, jobID, userID, productID, domain.OrderStatusConfirmed,
	)
	return err
}

// IsUniqueViolation reports whether err is a unique-constraint violation —
// either the (userId, productId) active-order index or the job_id key.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// GetByJobID looks up an order previously inserted for jobID, used by the
// job-status endpoint as the fallback once the status cache entry has expired.
func (r *OrderRepository) GetByJobID(ctx context.Context, jobID string) (domain.Order, error) {
	var o domain.Order
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT order_id, job_id, user_id, product_id, status, created_at
		 FROM orders WHERE job_id = $1`, jobID,
	).Scan(&o.OrderID, &o.JobID, &o.UserID, &o.ProductID, &status, &o.CreatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}

// CountActiveForUser reports whether userID already has a pending or
// confirmed order for productID — the database-level belt-and-braces check
// behind the status cache's fast path.
func (r *OrderRepository) CountActiveForUser(ctx context.Context, userID, productID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders
		 WHERE user_id = $1 AND product_id = $2 AND status IN ('pending', 'confirmed')`,
		userID, productID,
	).Scan(&count)
	return count, err
}

// Stats aggregates orders and stock for the admin dashboard (spec.md §4.5).
func (r *OrderRepository) Stats(ctx context.Context, productID string) (domain.Stats, error) {
	var s domain.Stats
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE true),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		 FROM orders WHERE product_id = $1`,
		productID,
	).Scan(&s.TotalOrders, &s.ConfirmedOrders, &s.PendingOrders, &s.FailedOrders)
	if err != nil {
		return domain.Stats{}, err
	}

	var price float64
	err = r.pool.QueryRow(ctx,
		`SELECT total_quantity, available_quantity FROM stock WHERE product_id = $1`,
		productID,
	).Scan(&s.TotalQuantity, &s.AvailableQuantity)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.Stats{}, err
	}

	err = r.pool.QueryRow(ctx, `SELECT price FROM products WHERE product_id = $1`, productID).Scan(&price)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.Stats{}, err
	}

	s.SoldQuantity = s.ConfirmedOrders
	s.TotalRevenue = price * float64(s.ConfirmedOrders)
	return s, nil
}

// RecordAttempt increments the fixed-window counter backing the admission
// rate limiter's durable audit trail (spec.md §9, Open Question 1). The
// in-flight decision itself is made against Redis (internal/repository/redis);
// this table is the durable record that an admin can audit later.
func (r *OrderRepository) RecordAttempt(ctx context.Context, userID, productID string, windowStart time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO purchase_attempts (user_id, product_id, window_start, count)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (user_id, product_id, window_start)
		 DO UPDATE SET count = purchase_attempts.count + 1`,
		userID, productID, windowStart,
	)
	return err
}
