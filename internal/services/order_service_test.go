package services_test

import (
	"context"
	"fmt"
	"testing"

	"checkout/internal/models"
	"checkout/internal/repositories"
	"checkout/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validContact() services.ContactInfo {
	return services.ContactInfo{
		FirstName:  "Sara",
		LastName:   "Ahmadi",
		Phone:      "09121234567",
		Address:    "No. 4, Azadi St.",
		PostalCode: "1234567890",
		City:       "Tehran",
		Province:   "Tehran",
	}
}

type orderFixture struct {
	orders    *MockOrderRepository
	products  *MockProductRepository
	coupons   *MockCouponRepository
	publisher *MockPublisher
	service   *services.OrderService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:    new(MockOrderRepository),
		products:  new(MockProductRepository),
		coupons:   new(MockCouponRepository),
		publisher: new(MockPublisher),
	}
	carts := services.NewCartService(f.products, f.coupons, zap.NewNop())
	f.service = services.NewOrderService(f.orders, f.products, carts, f.publisher, zap.NewNop())
	return f
}

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()

	teapot := &models.Product{ID: "p1", Name: "Teapot", Price: 50000, Weight: 500, Inventory: 10}
	cart := models.NewCart()
	cart.Add(teapot, 2)
	cart.Coupon = &models.CartCoupon{Code: "OFF10", Discount: 10}

	f.products.On("GetByID", mock.Anything, "p1").Return(teapot, nil).Once()
	f.coupons.On("GetByCode", mock.Anything, "OFF10").
		Return(&models.Coupon{Code: "OFF10", Discount: 10, Active: true}, nil).Once()
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Once()
	f.publisher.On("Publish", "order", "order.created", mock.Anything).Return(nil).Once()

	order, err := f.service.CreateOrder(ctx, "user-1", validContact(), cart)
	require.NoError(t, err)

	assert.True(t, order.OwnedBy("user-1"))
	assert.False(t, order.Paid)
	assert.Equal(t, models.OrderStatusCreated, order.Status)
	assert.Equal(t, "OFF10", order.CouponCode)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Teapot", order.Items[0].ProductName)
	assert.Equal(t, int64(50000), order.Items[0].UnitPrice)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, int64(90000+20000), order.FinalCost())

	// The cart is untouched; it is cleared only after settlement.
	assert.Equal(t, 2, cart.Len())

	f.orders.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	f := newOrderFixture()
	cart := models.NewCart()
	cart.Add(&models.Product{ID: "p1", Price: 10}, 1)

	contact := validContact()
	contact.FirstName = ""
	contact.Phone = "9121234567"
	contact.City = ""

	_, err := f.service.CreateOrder(context.Background(), "user-1", contact, cart)
	var validation *services.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Len(t, validation.Fields, 3)
	assert.Contains(t, validation.Fields, "first_name")
	assert.Contains(t, validation.Fields, "phone")
	assert.Contains(t, validation.Fields, "city")
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_EmptyCart(t *testing.T) {
	f := newOrderFixture()

	_, err := f.service.CreateOrder(context.Background(), "user-1", validContact(), models.NewCart())
	assert.ErrorIs(t, err, services.ErrEmptyCart)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_ProductGone(t *testing.T) {
	f := newOrderFixture()
	cart := models.NewCart()
	cart.Add(&models.Product{ID: "gone", Price: 10}, 1)

	f.products.On("GetByID", mock.Anything, "gone").
		Return(nil, fmt.Errorf("product with ID gone: %w", repositories.ErrNotFound)).Once()

	_, err := f.service.CreateOrder(context.Background(), "user-1", validContact(), cart)
	var unavailable *services.ProductUnavailableError
	assert.ErrorAs(t, err, &unavailable)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_PublishFailureIsNotFatal(t *testing.T) {
	f := newOrderFixture()
	cart := models.NewCart()
	cart.Add(&models.Product{ID: "p1", Price: 10}, 1)

	f.products.On("GetByID", mock.Anything, "p1").Return(&models.Product{ID: "p1", Name: "Pen"}, nil).Once()
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.publisher.On("Publish", "order", "order.created", mock.Anything).Return(fmt.Errorf("broker down")).Once()

	_, err := f.service.CreateOrder(context.Background(), "user-1", validContact(), cart)
	assert.NoError(t, err)
}

func TestOrderService_GetOrder_Ownership(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture()
	owner := "user-1"
	f.orders.On("GetByID", mock.Anything, "o1").Return(&models.Order{ID: "o1", BuyerID: &owner}, nil)
	f.orders.On("GetByID", mock.Anything, "o2").
		Return(nil, fmt.Errorf("order with ID o2: %w", repositories.ErrNotFound))

	order, err := f.service.GetOrder(ctx, "o1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)

	_, err = f.service.GetOrder(ctx, "o1", "user-2")
	assert.ErrorIs(t, err, services.ErrOrderNotFound)

	_, err = f.service.GetOrder(ctx, "o2", "user-1")
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestIsMobile(t *testing.T) {
	assert.True(t, services.IsMobile("09121234567"))
	assert.False(t, services.IsMobile("9121234567"))
	assert.False(t, services.IsMobile("0912123456a"))
	assert.False(t, services.IsMobile("08121234567"))
	assert.False(t, services.IsMobile("091212345678"))
}
