package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"flashsale/internal/domain"
)

// ProductRepository reads Product rows. Products are immutable for the
// lifetime of a sale (spec.md §3), so no update method is exposed here.
type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) GetByID(ctx context.Context, productID string) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx,
		`SELECT product_id, name, description, price FROM products WHERE product_id = $1`,
		productID,
	).Scan(&p.ProductID, &p.Name, &p.Description, &p.Price)
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p domain.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (product_id, name, description, price) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (product_id) DO NOTHING`,
		p.ProductID, p.Name, p.Description, p.Price,
	)
	return err
}
