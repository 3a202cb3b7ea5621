package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashsale/internal/domain"
)

// UserRepository persists User rows. A user is created on first login and is
// immutable afterward, per spec.md §3.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetOrCreateByEmail returns the existing user for email, creating one with
// RoleRegular if absent. email is lower-cased before lookup/insert.
func (r *UserRepository) GetOrCreateByEmail(ctx context.Context, userID, email string) (domain.User, error) {
	email = strings.ToLower(email)

	var u domain.User
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, email, role, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.UserID, &u.Email, &role, &u.CreatedAt)
	if err == nil {
		u.Role = domain.Role(role)
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO users (user_id, email, role) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING user_id, email, role, created_at`,
		userID, email, domain.RoleRegular,
	).Scan(&u.UserID, &u.Email, &role, &u.CreatedAt)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	return u, nil
}

// GetByID fetches a user by its stable id.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (domain.User, error) {
	var u domain.User
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, email, role, created_at FROM users WHERE user_id = $1`, userID,
	).Scan(&u.UserID, &u.Email, &role, &u.CreatedAt)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	return u, nil
}
