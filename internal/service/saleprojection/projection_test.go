package saleprojection

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashsale/internal/domain"
	"flashsale/internal/repository/redis"
)

func newTestCache(t *testing.T) *redis.SaleCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redis.NewSaleCache(client, time.Minute)
}

type fakeSales struct {
	byID        map[string]domain.FlashSale
	byProduct   map[string]domain.FlashSale
	lookupCalls int
}

func (f *fakeSales) GetByID(_ context.Context, saleID string) (domain.FlashSale, error) {
	sale, ok := f.byID[saleID]
	if !ok {
		return domain.FlashSale{}, assertNotFound
	}
	return sale, nil
}

func (f *fakeSales) GetCurrentForProduct(_ context.Context, productID string) (domain.FlashSale, error) {
	f.lookupCalls++
	sale, ok := f.byProduct[productID]
	if !ok {
		return domain.FlashSale{}, assertNotFound
	}
	return sale, nil
}

var assertNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type fakeProducts struct {
	products map[string]domain.Product
}

func (f *fakeProducts) GetByID(_ context.Context, productID string) (domain.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return domain.Product{}, assertNotFound
	}
	return p, nil
}

type fakeStock struct {
	stock map[string]domain.Stock
}

func (f *fakeStock) Get(_ context.Context, productID string) (domain.Stock, error) {
	s, ok := f.stock[productID]
	if !ok {
		return domain.Stock{}, assertNotFound
	}
	return s, nil
}

func TestCurrentSaleCachesAfterFirstLookup(t *testing.T) {
	cache := newTestCache(t)
	sale := domain.FlashSale{SaleID: "sale-1", ProductID: "product-1", StartTime: time.Now().Add(-time.Minute), EndTime: time.Now().Add(time.Hour)}
	sales := &fakeSales{byProduct: map[string]domain.FlashSale{"product-1": sale}}
	svc := New(cache, sales, &fakeProducts{}, &fakeStock{})

	ctx := context.Background()
	got, err := svc.CurrentSale(ctx, "product-1")
	require.NoError(t, err)
	assert.Equal(t, "sale-1", got.SaleID)

	_, err = svc.CurrentSale(ctx, "product-1")
	require.NoError(t, err)
	assert.Equal(t, 1, sales.lookupCalls, "second call should be served from cache")
}

func TestStatusReportsActiveSaleWithStockCounts(t *testing.T) {
	cache := newTestCache(t)
	sale := domain.FlashSale{SaleID: "sale-1", ProductID: "product-1", StartTime: time.Now().Add(-time.Minute), EndTime: time.Now().Add(time.Hour)}
	sales := &fakeSales{byProduct: map[string]domain.FlashSale{"product-1": sale}}
	products := &fakeProducts{products: map[string]domain.Product{"product-1": {ProductID: "product-1", Name: "widget", Price: 9.99}}}
	stock := &fakeStock{stock: map[string]domain.Stock{"product-1": {ProductID: "product-1", TotalQuantity: 100, AvailableQuantity: 42}}}
	svc := New(cache, sales, products, stock)

	view, err := svc.Status(context.Background(), "product-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusActive, view.Status)
	assert.Equal(t, 100, view.TotalQuantity)
	assert.Equal(t, 42, view.AvailableQuantity)
	assert.Equal(t, "widget", view.ProductName)
	assert.Zero(t, view.TimeUntilStart)
	assert.Greater(t, view.TimeUntilEnd, time.Duration(0))
}

func TestStatusBySaleIDLooksUpBySaleIDNotProductID(t *testing.T) {
	cache := newTestCache(t)
	sale := domain.FlashSale{SaleID: "sale-xyz", ProductID: "product-1", StartTime: time.Now().Add(time.Hour), EndTime: time.Now().Add(2 * time.Hour)}
	sales := &fakeSales{byID: map[string]domain.FlashSale{"sale-xyz": sale}}
	products := &fakeProducts{products: map[string]domain.Product{"product-1": {ProductID: "product-1", Name: "widget", Price: 9.99}}}
	stock := &fakeStock{stock: map[string]domain.Stock{"product-1": {ProductID: "product-1", TotalQuantity: 10, AvailableQuantity: 10}}}
	svc := New(cache, sales, products, stock)

	view, err := svc.StatusBySaleID(context.Background(), "sale-xyz")
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusUpcoming, view.Status)
	assert.Equal(t, "product-1", view.ProductID)
	assert.Greater(t, view.TimeUntilStart, time.Duration(0))
}

func TestInvalidateClearsCachedSale(t *testing.T) {
	cache := newTestCache(t)
	sale := domain.FlashSale{SaleID: "sale-1", ProductID: "product-1", StartTime: time.Now().Add(-time.Minute), EndTime: time.Now().Add(time.Hour)}
	sales := &fakeSales{byProduct: map[string]domain.FlashSale{"product-1": sale}}
	svc := New(cache, sales, &fakeProducts{}, &fakeStock{})

	ctx := context.Background()
	_, err := svc.CurrentSale(ctx, "product-1")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx, "product-1"))

	_, err = svc.CurrentSale(ctx, "product-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sales.lookupCalls, "after invalidation the next call must hit the store again")
}
