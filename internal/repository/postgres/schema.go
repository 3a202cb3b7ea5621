package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitSchema creates the tables this service owns if they do not already
// exist. Schema migrations proper are out of scope (spec.md §1); this mirrors
// the teacher's InitDB, generalized from two tables to the full data model.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id    TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			role       TEXT NOT NULL DEFAULT 'regular',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			product_id  TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price       NUMERIC(12,2) NOT NULL CHECK (price >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS stock (
			product_id         TEXT PRIMARY KEY REFERENCES products(product_id),
			total_quantity     INTEGER NOT NULL CHECK (total_quantity >= 0),
			available_quantity INTEGER NOT NULL CHECK (available_quantity >= 0),
			reserved_quantity  INTEGER NOT NULL DEFAULT 0 CHECK (reserved_quantity >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS flash_sales (
			sale_id    TEXT PRIMARY KEY,
			product_id TEXT NOT NULL REFERENCES products(product_id),
			start_time TIMESTAMPTZ NOT NULL,
			end_time   TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (start_time < end_time)
		)`,
		`CREATE INDEX IF NOT EXISTS flash_sales_product_idx ON flash_sales(product_id)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id   TEXT PRIMARY KEY,
			job_id     TEXT NOT NULL UNIQUE,
			user_id    TEXT NOT NULL,
			product_id TEXT NOT NULL,
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS orders_active_user_product_idx
			ON orders(user_id, product_id)
			WHERE status IN ('pending', 'confirmed')`,
		`CREATE INDEX IF NOT EXISTS orders_product_status_idx ON orders(product_id, status)`,
		`CREATE TABLE IF NOT EXISTS purchase_attempts (
			user_id     TEXT NOT NULL,
			product_id  TEXT NOT NULL,
			window_start TIMESTAMPTZ NOT NULL,
			count       INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, product_id, window_start)
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
