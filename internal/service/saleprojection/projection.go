// Package saleprojection serves the read side of a flash sale: the
// cache-aside status view polled by clients and consulted by admission and
// the worker (spec.md §4.6). Grounded on the teacher's GetFlashSaleStatus
// handler, split out of the HTTP layer into its own service so admission and
// the worker can share it without an HTTP round trip.
package saleprojection

import (
	"context"
	"time"

	"flashsale/internal/domain"
	"flashsale/internal/repository/redis"
)

// FlashSaleStore is the subset of *postgres.FlashSaleRepository this
// service needs, narrowed so tests can supply a fake instead of a database.
type FlashSaleStore interface {
	GetByID(ctx context.Context, saleID string) (domain.FlashSale, error)
	GetCurrentForProduct(ctx context.Context, productID string) (domain.FlashSale, error)
}

// ProductStore is the subset of *postgres.ProductRepository this service
// needs.
type ProductStore interface {
	GetByID(ctx context.Context, productID string) (domain.Product, error)
}

// StockStore is the subset of *postgres.StockRepository this service needs.
type StockStore interface {
	Get(ctx context.Context, productID string) (domain.Stock, error)
}

type Service struct {
	cache    *redis.SaleCache
	sales    FlashSaleStore
	products ProductStore
	stock    StockStore
}

func New(cache *redis.SaleCache, sales FlashSaleStore, products ProductStore, stock StockStore) *Service {
	return &Service{cache: cache, sales: sales, products: products, stock: stock}
}

// CurrentSale resolves the sale used by admission's pre-check and the
// worker's re-check, going to Postgres only on a cache miss. This path never
// needs product or stock data, so it stays on the lightweight sale-window
// cache entry rather than the full status Snapshot.
func (s *Service) CurrentSale(ctx context.Context, productID string) (domain.FlashSale, error) {
	if sale, ok, err := s.cache.Get(ctx, productID); err == nil && ok {
		return sale, nil
	}

	sale, err := s.sales.GetCurrentForProduct(ctx, productID)
	if err != nil {
		return domain.FlashSale{}, err
	}
	_ = s.cache.Put(ctx, sale)
	return sale, nil
}

// Status builds the full read model served by GET /flash-sale/status. On a
// cache hit this never touches Postgres: the cached Snapshot already carries
// the product and stock counts, only the time-derived fields (Status,
// TimeUntilStart/End) are recomputed against the current time.
func (s *Service) Status(ctx context.Context, productID string) (domain.SaleStatusView, error) {
	if snap, ok, err := s.cache.GetSnapshot(ctx, productID); err == nil && ok {
		return s.buildView(snap), nil
	}

	snap, err := s.load(ctx, productID)
	if err != nil {
		return domain.SaleStatusView{}, err
	}
	return s.buildView(snap), nil
}

// StatusBySaleID builds the same read model keyed by sale id rather than
// product id, backing GET /admin/flash-sale/:id. The snapshot cache is still
// keyed by productId, so this reuses a cached Snapshot only if it still
// describes the requested sale.
func (s *Service) StatusBySaleID(ctx context.Context, saleID string) (domain.SaleStatusView, error) {
	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return domain.SaleStatusView{}, err
	}

	if snap, ok, err := s.cache.GetSnapshot(ctx, sale.ProductID); err == nil && ok && snap.Sale.SaleID == sale.SaleID {
		return s.buildView(snap), nil
	}

	product, err := s.products.GetByID(ctx, sale.ProductID)
	if err != nil {
		return domain.SaleStatusView{}, err
	}
	stock, err := s.stock.Get(ctx, sale.ProductID)
	if err != nil {
		return domain.SaleStatusView{}, err
	}

	snap := redis.Snapshot{Sale: sale, Product: product, Stock: stock}
	_ = s.cache.PutSnapshot(ctx, snap)
	return s.buildView(snap), nil
}

// load fetches the current sale for productID plus its product and stock
// rows, and writes the bundle to the snapshot cache for the next read.
func (s *Service) load(ctx context.Context, productID string) (redis.Snapshot, error) {
	sale, err := s.sales.GetCurrentForProduct(ctx, productID)
	if err != nil {
		return redis.Snapshot{}, err
	}
	product, err := s.products.GetByID(ctx, sale.ProductID)
	if err != nil {
		return redis.Snapshot{}, err
	}
	stock, err := s.stock.Get(ctx, sale.ProductID)
	if err != nil {
		return redis.Snapshot{}, err
	}

	snap := redis.Snapshot{Sale: sale, Product: product, Stock: stock}
	_ = s.cache.PutSnapshot(ctx, snap)
	return snap, nil
}

func (s *Service) buildView(snap redis.Snapshot) domain.SaleStatusView {
	now := time.Now()
	view := domain.SaleStatusView{
		SaleID:            snap.Sale.SaleID,
		ProductID:         snap.Product.ProductID,
		ProductName:       snap.Product.Name,
		ProductPrice:      snap.Product.Price,
		StartTime:         snap.Sale.StartTime,
		EndTime:           snap.Sale.EndTime,
		Status:            snap.Sale.Status(now),
		TotalQuantity:     snap.Stock.TotalQuantity,
		AvailableQuantity: snap.Stock.AvailableQuantity,
	}
	if view.Status == domain.SaleStatusUpcoming {
		view.TimeUntilStart = snap.Sale.StartTime.Sub(now)
	}
	if view.Status == domain.SaleStatusActive {
		view.TimeUntilEnd = snap.Sale.EndTime.Sub(now)
	}
	return view
}

// Invalidate drops the cached projection, used after an admin edits a sale.
func (s *Service) Invalidate(ctx context.Context, productID string) error {
	return s.cache.Invalidate(ctx, productID)
}
