package services

import (
	"context"
	"encoding/json"

	"checkout/internal/models"
	"checkout/internal/repositories"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ContactInfo is the buyer contact and shipping address of an order.
type ContactInfo struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,mobile"`
	Address    string `json:"address" validate:"required,max=250"`
	PostalCode string `json:"postal_code" validate:"required,max=10"`
	City       string `json:"city" validate:"required,max=50"`
	Province   string `json:"province" validate:"required,max=50"`
}

type couponChecker interface {
	CheckCoupon(ctx context.Context, code, userID string) (*models.Coupon, error)
}

// OrderService materializes orders from carts and serves them back to their buyers.
type OrderService struct {
	orders    repositories.OrderRepository
	products  repositories.ProductRepository
	coupons   couponChecker
	publisher EventPublisher
	validate  *validator.Validate
	lg        *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orders repositories.OrderRepository,
	products repositories.ProductRepository,
	coupons couponChecker,
	publisher EventPublisher,
	lg *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		coupons:   coupons,
		publisher: publisher,
		validate:  NewValidator(),
		lg:        lg,
	}
}

// CreateOrder persists an unpaid order with one item snapshot per cart line.
// The cart and the inventory are left untouched; both change at settlement.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID string, contact ContactInfo, cart *models.Cart) (*models.Order, error) {
	if err := ValidateStruct(s.validate, contact); err != nil {
		return nil, err
	}
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(cart.Entries))
	for entry := range cart.All() {
		product, err := s.products.GetByID(ctx, entry.ProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, &ProductUnavailableError{ProductID: entry.ProductID}
			}
			return nil, err
		}
		items = append(items, models.OrderItem{
			ProductID:   entry.ProductID,
			ProductName: product.Name,
			UnitPrice:   entry.UnitPrice,
			Quantity:    entry.Quantity,
			Weight:      entry.Weight,
		})
	}

	order := &models.Order{
		FirstName:  contact.FirstName,
		LastName:   contact.LastName,
		Phone:      contact.Phone,
		Address:    contact.Address,
		PostalCode: contact.PostalCode,
		City:       contact.City,
		Province:   contact.Province,
		Status:     models.OrderStatusCreated,
		Items:      items,
	}
	if buyerID != "" {
		order.BuyerID = &buyerID
	}
	if cart.Coupon != nil {
		coupon, err := s.coupons.CheckCoupon(ctx, cart.Coupon.Code, buyerID)
		if err != nil {
			return nil, err
		}
		order.CouponCode = coupon.Code
		order.Discount = coupon.Discount
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	s.lg.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("final_cost", order.FinalCost()),
		zap.Int("items", len(order.Items)),
	)
	s.publish("order.created", order)
	return order, nil
}

// GetOrder returns the order if it belongs to buyerID.
func (s *OrderService) GetOrder(ctx context.Context, id, buyerID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.OwnedBy(buyerID) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns every order of the buyer, newest first.
func (s *OrderService) ListOrders(ctx context.Context, buyerID string) ([]models.Order, error) {
	return s.orders.ListByBuyer(ctx, buyerID)
}

// publish sends an order event. Failures are logged and never returned.
func (s *OrderService) publish(routingKey string, order *models.Order) {
	publishOrderEvent(s.publisher, s.lg, routingKey, order)
}

type orderEvent struct {
	OrderID   string             `json:"order_id"`
	BuyerID   *string            `json:"buyer_id"`
	Status    models.OrderStatus `json:"status"`
	FinalCost int64              `json:"final_cost"`
	RefID     string             `json:"ref_id,omitempty"`
}

func publishOrderEvent(publisher EventPublisher, lg *zap.Logger, routingKey string, order *models.Order) {
	if publisher == nil {
		return
	}
	body, err := json.Marshal(orderEvent{
		OrderID:   order.ID,
		BuyerID:   order.BuyerID,
		Status:    order.Status,
		FinalCost: order.FinalCost(),
		RefID:     order.RefID,
	})
	if err != nil {
		lg.Warn("Failed to marshal order event", zap.Error(err))
		return
	}
	if err := publisher.Publish("order", routingKey, body); err != nil {
		lg.Warn("Failed to publish order event",
			zap.String("routing_key", routingKey),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}
