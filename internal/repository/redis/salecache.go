package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"flashsale/internal/domain"
)

// SaleCache is a short-TTL cache-aside projection of the current flash sale
// for a product (spec.md §4.6). It holds two shapes under two keys: a
// lightweight sale-window entry used by admission's and the worker's
// pre-checks, and a full Snapshot (sale, product, stock) used by the status
// read path, so the heaviest-traffic read (polling available stock during a
// sale) is served entirely from Redis on a cache hit.
type SaleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Snapshot bundles everything saleprojection needs to build a SaleStatusView
// without a second round trip to Postgres.
type Snapshot struct {
	Sale    domain.FlashSale
	Product domain.Product
	Stock   domain.Stock
}

func NewSaleCache(client *redis.Client, ttl time.Duration) *SaleCache {
	return &SaleCache{client: client, ttl: ttl}
}

func saleKey(productID string) string {
	return fmt.Sprintf("sale:product:%s", productID)
}

func snapshotKey(productID string) string {
	return fmt.Sprintf("sale:snapshot:%s", productID)
}

// Get returns the cached sale window for productID, without product or
// stock data. Used by the cheap pre-checks in admission and the worker.
func (c *SaleCache) Get(ctx context.Context, productID string) (domain.FlashSale, bool, error) {
	val, err := c.client.Get(ctx, saleKey(productID)).Result()
	if err == redis.Nil {
		return domain.FlashSale{}, false, nil
	}
	if err != nil {
		return domain.FlashSale{}, false, err
	}
	var sale domain.FlashSale
	if err := json.Unmarshal([]byte(val), &sale); err != nil {
		return domain.FlashSale{}, false, err
	}
	return sale, true, nil
}

func (c *SaleCache) Put(ctx context.Context, sale domain.FlashSale) error {
	data, err := json.Marshal(sale)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, saleKey(sale.ProductID), data, c.ttl).Err()
}

// GetSnapshot returns the cached full view (sale, product, stock) for
// productID, serving the status read path entirely from Redis on a hit.
func (c *SaleCache) GetSnapshot(ctx context.Context, productID string) (Snapshot, bool, error) {
	val, err := c.client.Get(ctx, snapshotKey(productID)).Result()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (c *SaleCache) PutSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey(snap.Sale.ProductID), data, c.ttl).Err()
}

// Invalidate drops both cached projections for productID, used by the admin
// create/update handlers so a sale edit is visible without waiting out the
// TTL (spec.md §4.6).
func (c *SaleCache) Invalidate(ctx context.Context, productID string) error {
	return c.client.Del(ctx, saleKey(productID), snapshotKey(productID)).Err()
}
