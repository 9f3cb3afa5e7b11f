package services

import (
	"context"
	"fmt"
	"time"

	"checkout/internal/models"
	"checkout/internal/repositories"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// CartLine is a cart entry joined with the catalog product it refers to.
type CartLine struct {
	models.CartEntry
	Name string `json:"name"`
	Cost int64  `json:"cost"`
	// Unavailable marks a line whose product left the catalog. It has to be
	// removed before the cart can be checked out.
	Unavailable bool `json:"unavailable,omitempty"`
}

// CartService handles the session-scoped shopping cart.
type CartService struct {
	products repositories.ProductRepository
	coupons  repositories.CouponRepository
	lg       *zap.Logger
	now      func() time.Time
}

// NewCartService creates a new CartService.
func NewCartService(products repositories.ProductRepository, coupons repositories.CouponRepository, lg *zap.Logger) *CartService {
	return &CartService{
		products: products,
		coupons:  coupons,
		lg:       lg,
		now:      time.Now,
	}
}

// Get returns the cart stored in the session, or an empty cart.
func (s *CartService) Get(sess Session) (*models.Cart, error) {
	cart := models.NewCart()
	if _, err := loadJSON(sess, sessionCartKey, cart); err != nil {
		return nil, err
	}
	if cart.Entries == nil {
		cart.Entries = make(map[string]*models.CartEntry)
	}
	return cart, nil
}

func (s *CartService) save(sess Session, cart *models.Cart) error {
	return storeJSON(sess, sessionCartKey, cart)
}

// Clear destroys the cart.
func (s *CartService) Clear(sess Session) {
	sess.Delete(sessionCartKey)
}

// product looks the product up, turning a missing record into ProductUnavailable.
func (s *CartService) product(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &ProductUnavailableError{ProductID: id}
		}
		return nil, err
	}
	return product, nil
}

// Add snapshots the current price and weight of the product and increments
// its quantity by qty.
func (s *CartService) Add(ctx context.Context, sess Session, productID string, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, &ValidationError{Fields: map[string]string{"quantity": "must be at least 1"}}
	}
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	cart, err := s.Get(sess)
	if err != nil {
		return nil, err
	}
	cart.Add(product, qty)
	if err := s.save(sess, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Decrease decrements the quantity of the product, removing the line at zero.
func (s *CartService) Decrease(ctx context.Context, sess Session, productID string) (*models.Cart, error) {
	if _, err := s.product(ctx, productID); err != nil {
		return nil, err
	}
	cart, err := s.Get(sess)
	if err != nil {
		return nil, err
	}
	if !cart.Decrease(productID) {
		return cart, nil
	}
	if err := s.save(sess, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Remove drops the product line. A line whose product left the catalog can
// still be removed; an unknown product that is not in the cart is reported.
func (s *CartService) Remove(ctx context.Context, sess Session, productID string) (*models.Cart, error) {
	cart, err := s.Get(sess)
	if err != nil {
		return nil, err
	}
	if _, err := s.product(ctx, productID); err != nil {
		var unavailable *ProductUnavailableError
		if _, inCart := cart.Entry(productID); !inCart || !errors.As(err, &unavailable) {
			return nil, err
		}
	}
	cart.Remove(productID)
	if err := s.save(sess, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Lines joins every cart entry with its product. A product that left the
// catalog stays in the list flagged as unavailable.
func (s *CartService) Lines(ctx context.Context, cart *models.Cart) ([]CartLine, error) {
	lines := make([]CartLine, 0, len(cart.Entries))
	for entry := range cart.All() {
		line := CartLine{CartEntry: entry, Cost: entry.Cost()}
		product, err := s.product(ctx, entry.ProductID)
		var unavailable *ProductUnavailableError
		switch {
		case errors.As(err, &unavailable):
			line.Unavailable = true
		case err != nil:
			return nil, err
		default:
			line.Name = product.Name
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// CheckCoupon validates a coupon for userID (empty for anonymous buyers).
func (s *CartService) CheckCoupon(ctx context.Context, code, userID string) (*models.Coupon, error) {
	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCoupon
		}
		return nil, err
	}
	if !coupon.Active || (coupon.ValidUntil != nil && s.now().After(*coupon.ValidUntil)) {
		return nil, ErrInvalidCoupon
	}
	if coupon.Exhausted() {
		return nil, ErrCouponExhausted
	}
	if coupon.PerUserLimit > 0 && userID != "" {
		uses, err := s.coupons.UsageCount(ctx, coupon.Code, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check coupon usage: %w", err)
		}
		if uses >= coupon.PerUserLimit {
			return nil, ErrCouponExhausted
		}
	}
	return coupon, nil
}

// ApplyCoupon attaches a valid coupon to the cart.
func (s *CartService) ApplyCoupon(ctx context.Context, sess Session, code, userID string) (*models.Cart, error) {
	coupon, err := s.CheckCoupon(ctx, code, userID)
	if err != nil {
		return nil, err
	}
	cart, err := s.Get(sess)
	if err != nil {
		return nil, err
	}
	cart.Coupon = &models.CartCoupon{Code: coupon.Code, Discount: coupon.Discount}
	if err := s.save(sess, cart); err != nil {
		return nil, err
	}
	s.lg.Debug("Coupon applied", zap.String("code", coupon.Code), zap.Int("discount", coupon.Discount))
	return cart, nil
}

// RemoveCoupon detaches the coupon from the cart.
func (s *CartService) RemoveCoupon(sess Session) (*models.Cart, error) {
	cart, err := s.Get(sess)
	if err != nil {
		return nil, err
	}
	cart.Coupon = nil
	if err := s.save(sess, cart); err != nil {
		return nil, err
	}
	return cart, nil
}
