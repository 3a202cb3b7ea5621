// Package saleadmin implements the admin write path of spec.md §4.6:
// creating and updating flash sales, including provisioning the backing
// stock row and invalidating the read-side cache so edits are visible
// immediately.
package saleadmin

import (
	"context"

	"flashsale/internal/apperr"
	"flashsale/internal/domain"
	"flashsale/internal/repository/postgres"
	"flashsale/internal/repository/redis"
)

type Service struct {
	sales *postgres.FlashSaleRepository
	stock *postgres.StockRepository
	cache *redis.SaleCache
}

func New(sales *postgres.FlashSaleRepository, stock *postgres.StockRepository, cache *redis.SaleCache) *Service {
	return &Service{sales: sales, stock: stock, cache: cache}
}

// Create validates the sale window, provisions quantity units of stock for
// productID, and persists the sale.
func (s *Service) Create(ctx context.Context, sale domain.FlashSale, quantity int) error {
	if !sale.EndTime.After(sale.StartTime) {
		return apperr.New(apperr.KindValidation, apperr.ErrEndBeforeStart)
	}

	if err := s.stock.Create(ctx, sale.ProductID, quantity); err != nil {
		return apperr.Transient(err)
	}
	if err := s.sales.Create(ctx, sale); err != nil {
		return apperr.Transient(err)
	}
	_ = s.cache.Invalidate(ctx, sale.ProductID)
	return nil
}

// Update edits an existing sale's window, invalidating its cached
// projection so pollers see the change without waiting out the TTL.
func (s *Service) Update(ctx context.Context, sale domain.FlashSale) error {
	if !sale.EndTime.After(sale.StartTime) {
		return apperr.New(apperr.KindValidation, apperr.ErrEndBeforeStart)
	}
	if err := s.sales.Update(ctx, sale); err != nil {
		return apperr.Transient(err)
	}
	_ = s.cache.Invalidate(ctx, sale.ProductID)
	return nil
}
