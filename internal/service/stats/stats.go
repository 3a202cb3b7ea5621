// Package stats aggregates order and stock counters for the admin surface
// (spec.md §4.5). Grounded on the teacher's FinalizeSales, generalized from
// a fixed-size batch finalization pass to a live per-sale aggregate query.
package stats

import (
	"context"

	"flashsale/internal/domain"
	"flashsale/internal/repository/postgres"
)

type Service struct {
	orders *postgres.OrderRepository
}

func New(orders *postgres.OrderRepository) *Service {
	return &Service{orders: orders}
}

// ForProduct returns the admin dashboard aggregate for productID.
func (s *Service) ForProduct(ctx context.Context, productID string) (domain.Stats, error) {
	return s.orders.Stats(ctx, productID)
}
