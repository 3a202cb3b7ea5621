package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashsale/internal/domain"
)

// FlashSaleRepository owns flash sale rows (spec.md §3, §4.6). Grounded on
// the teacher's InitDB/insert-on-boot pattern, generalized from a single
// hardcoded sale to admin-managed create/update.
type FlashSaleRepository struct {
	pool *pgxpool.Pool
}

func NewFlashSaleRepository(pool *pgxpool.Pool) *FlashSaleRepository {
	return &FlashSaleRepository{pool: pool}
}

func (r *FlashSaleRepository) Create(ctx context.Context, s domain.FlashSale) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO flash_sales (sale_id, product_id, start_time, end_time)
		 VALUES ($1, $2, $3, $4)`,
		s.SaleID, s.ProductID, s.StartTime, s.EndTime,
	)
	return err
}

func (r *FlashSaleRepository) Update(ctx context.Context, s domain.FlashSale) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE flash_sales SET start_time = $2, end_time = $3, updated_at = now()
		 WHERE sale_id = $1`,
		s.SaleID, s.StartTime, s.EndTime,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *FlashSaleRepository) GetByID(ctx context.Context, saleID string) (domain.FlashSale, error) {
	var s domain.FlashSale
	err := r.pool.QueryRow(ctx,
		`SELECT sale_id, product_id, start_time, end_time, created_at, updated_at
		 FROM flash_sales WHERE sale_id = $1`, saleID,
	).Scan(&s.SaleID, &s.ProductID, &s.StartTime, &s.EndTime, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.FlashSale{}, err
	}
	return s, nil
}

// GetCurrentForProduct returns the most relevant sale for productID: the one
// currently active, or failing that the soonest upcoming one, or failing
// that the most recently ended one. This backs the sale-status projection
// (spec.md §4.6) when the cache is cold.
func (r *FlashSaleRepository) GetCurrentForProduct(ctx context.Context, productID string) (domain.FlashSale, error) {
	var s domain.FlashSale
	err := r.pool.QueryRow(ctx,
		`SELECT sale_id, product_id, start_time, end_time, created_at, updated_at
		 FROM flash_sales
		 WHERE product_id = $1
		 ORDER BY
			(now() BETWEEN start_time AND end_time) DESC,
			CASE WHEN start_time > now() THEN start_time END ASC,
			end_time DESC
		 LIMIT 1`,
		productID,
	).Scan(&s.SaleID, &s.ProductID, &s.StartTime, &s.EndTime, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.FlashSale{}, err
	}
	return s, nil
}

func (r *FlashSaleRepository) IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
