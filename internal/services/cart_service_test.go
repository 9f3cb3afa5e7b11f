package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"checkout/internal/models"
	"checkout/internal/repositories"
	"checkout/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCartService_AddDecreaseRemove(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	service := services.NewCartService(products, new(MockCouponRepository), zap.NewNop())
	sess := newMemSession()

	teapot := &models.Product{ID: "p1", Name: "Teapot", Price: 50000, Weight: 500, Inventory: 10}
	products.On("GetByID", mock.Anything, "p1").Return(teapot, nil)

	cart, err := service.Add(ctx, sess, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Len())
	assert.Equal(t, int64(120000), cart.FinalCost())

	// The cart survives between requests through the session only.
	cart, err = service.Get(sess)
	require.NoError(t, err)
	entry, ok := cart.Entry("p1")
	require.True(t, ok)
	assert.Equal(t, 2, entry.Quantity)

	lines, err := service.Lines(ctx, cart)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Teapot", lines[0].Name)
	assert.Equal(t, int64(100000), lines[0].Cost)

	cart, err = service.Decrease(ctx, sess, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Len())

	cart, err = service.Remove(ctx, sess, "p1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartService_Errors(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	service := services.NewCartService(products, new(MockCouponRepository), zap.NewNop())
	sess := newMemSession()

	products.On("GetByID", mock.Anything, "gone").
		Return(nil, fmt.Errorf("product with ID gone: %w", repositories.ErrNotFound))

	_, err := service.Add(ctx, sess, "gone", 1)
	var unavailable *services.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "gone", unavailable.ProductID)

	_, err = service.Add(ctx, sess, "p1", 0)
	var validation *services.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "quantity")

	cart, err := service.Get(sess)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartService_ProductLeavesCatalog(t *testing.T) {
	ctx := context.Background()
	repos := repositories.NewGORMRepositories(newTestDB(t))
	service := services.NewCartService(repos.Products, repos.Coupons, zap.NewNop())
	sess := newMemSession()

	teapot := &models.Product{Name: "Teapot", Price: 50000, Weight: 500, Inventory: 10}
	cup := &models.Product{Name: "Cup", Price: 10000, Weight: 100, Inventory: 10}
	require.NoError(t, repos.Products.Create(ctx, teapot))
	require.NoError(t, repos.Products.Create(ctx, cup))

	_, err := service.Add(ctx, sess, teapot.ID, 1)
	require.NoError(t, err)
	cart, err := service.Add(ctx, sess, cup.ID, 2)
	require.NoError(t, err)

	require.NoError(t, repos.Products.Delete(ctx, teapot.ID))

	lines, err := service.Lines(ctx, cart)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, line.ProductID == teapot.ID, line.Unavailable, line.ProductID)
	}

	_, err = service.Decrease(ctx, sess, teapot.ID)
	var unavailable *services.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)

	cart, err = service.Remove(ctx, sess, teapot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Len())
	_, ok := cart.Entry(teapot.ID)
	assert.False(t, ok)

	// Removing an unknown product that is not in the cart is still an error.
	_, err = service.Remove(ctx, sess, teapot.ID)
	require.ErrorAs(t, err, &unavailable)

	cart, err = service.Remove(ctx, sess, cup.ID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	cart, err = service.Get(sess)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartService_Sessions_AreIsolated(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	service := services.NewCartService(products, new(MockCouponRepository), zap.NewNop())
	products.On("GetByID", mock.Anything, "p1").Return(&models.Product{ID: "p1", Price: 10}, nil)

	first, second := newMemSession(), newMemSession()
	_, err := service.Add(ctx, first, "p1", 3)
	require.NoError(t, err)

	cart, err := service.Get(second)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartService_Coupons(t *testing.T) {
	ctx := context.Background()
	coupons := new(MockCouponRepository)
	service := services.NewCartService(new(MockProductRepository), coupons, zap.NewNop())
	sess := newMemSession()

	past := time.Now().Add(-time.Hour)
	coupons.On("GetByCode", mock.Anything, "OFF10").
		Return(&models.Coupon{Code: "OFF10", Discount: 10, Active: true, PerUserLimit: 1}, nil)
	coupons.On("GetByCode", mock.Anything, "OLD").
		Return(&models.Coupon{Code: "OLD", Discount: 10, Active: true, ValidUntil: &past}, nil)
	coupons.On("GetByCode", mock.Anything, "FULL").
		Return(&models.Coupon{Code: "FULL", Discount: 10, Active: true, UsageLimit: 5, UsedCount: 5}, nil)
	coupons.On("GetByCode", mock.Anything, "NOPE").
		Return(nil, fmt.Errorf("coupon NOPE: %w", repositories.ErrNotFound))
	coupons.On("UsageCount", mock.Anything, "OFF10", "user-1").Return(0, nil)
	coupons.On("UsageCount", mock.Anything, "OFF10", "user-2").Return(1, nil)

	cart, err := service.ApplyCoupon(ctx, sess, "OFF10", "user-1")
	require.NoError(t, err)
	require.NotNil(t, cart.Coupon)
	assert.Equal(t, 10, cart.Discount())

	_, err = service.CheckCoupon(ctx, "OFF10", "user-2")
	assert.ErrorIs(t, err, services.ErrCouponExhausted)
	_, err = service.CheckCoupon(ctx, "FULL", "user-1")
	assert.ErrorIs(t, err, services.ErrCouponExhausted)
	_, err = service.CheckCoupon(ctx, "OLD", "user-1")
	assert.ErrorIs(t, err, services.ErrInvalidCoupon)
	_, err = service.CheckCoupon(ctx, "NOPE", "user-1")
	assert.ErrorIs(t, err, services.ErrInvalidCoupon)

	cart, err = service.RemoveCoupon(sess)
	require.NoError(t, err)
	assert.Nil(t, cart.Coupon)
	assert.Equal(t, 0, cart.Discount())
}
