package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashsale/internal/domain"
)

// ErrNoRows is returned when a stock row does not exist for a product.
var ErrNoRows = pgx.ErrNoRows

// StockRepository owns availableQuantity (spec.md §3, §9): the conditional
// UPDATE here is the only authorized writer. Grounded on the teacher's
// ProcessPurchase transaction and on AndreyyTs-Flash-Sale-Service's
// conditional `UPDATE ... WHERE purchased = false`, generalized from a
// boolean flag to a decrementing counter.
type StockRepository struct {
	pool *pgxpool.Pool
}

func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

func (r *StockRepository) Get(ctx context.Context, productID string) (domain.Stock, error) {
	var s domain.Stock
	err := r.pool.QueryRow(ctx,
		`SELECT product_id, total_quantity, available_quantity, reserved_quantity
		 FROM stock WHERE product_id = $1`, productID,
	).Scan(&s.ProductID, &s.TotalQuantity, &s.AvailableQuantity, &s.ReservedQuantity)
	if err != nil {
		return domain.Stock{}, err
	}
	return s, nil
}

func (r *StockRepository) Create(ctx context.Context, productID string, totalQuantity int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stock (product_id, total_quantity, available_quantity, reserved_quantity)
		 VALUES ($1, $2, $2, 0)
		 ON CONFLICT (product_id) DO NOTHING`,
		productID, totalQuantity,
	)
	return err
}

// AdvisoryLock acquires a transaction-scoped exclusive advisory lock keyed by
// productID for the remainder of tx (spec.md §4.3 step 3). It is released
// automatically on commit or rollback — the one primitive in this system with
// no library to ground on beyond the driver itself (see DESIGN.md).
func (r *StockRepository) AdvisoryLock(ctx context.Context, tx pgx.Tx, productID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, productID)
	return err
}

// DecrementAvailable performs the conditional decrement: it succeeds only if
// availableQuantity was strictly positive, and reports whether exactly one
// row was affected so the caller can distinguish OutOfStock from success.
func (r *StockRepository) DecrementAvailable(ctx context.Context, tx pgx.Tx, productID string) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE stock SET available_quantity = available_quantity - 1
		 WHERE product_id = $1 AND available_quantity > 0`,
		productID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementAvailable compensates a decrement whose paired order insert failed
// (spec.md §4.3 step 6 and §5's cancellation/timeout handling).
func (r *StockRepository) IncrementAvailable(ctx context.Context, tx pgx.Tx, productID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE stock SET available_quantity = available_quantity + 1 WHERE product_id = $1`,
		productID,
	)
	return err
}

// IsNoRows reports whether err represents "no such row", used by callers that
// need to translate a missing stock/product row into a typed error.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
