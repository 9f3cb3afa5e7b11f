package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrAlreadyRegistered is returned when a phone already belongs to an account.
	ErrAlreadyRegistered = errors.New("phone already registered")
	// ErrCodeMismatch is returned when a verification code does not match.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrNoActiveChallenge is returned when no verification challenge is pending.
	ErrNoActiveChallenge = errors.New("no active verification challenge")
	// ErrOrderNotFound is returned when an order does not exist or belongs to someone else.
	ErrOrderNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when checking out an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidCoupon is returned for unknown, inactive or expired coupons.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExhausted is returned when a coupon reached its usage limit.
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	// ErrAlreadyPaid is returned when starting a payment for a paid order.
	ErrAlreadyPaid = errors.New("order already paid")
	// ErrAuthorityMismatch is returned when a callback carries an authority
	// other than the one issued for the order in this session.
	ErrAuthorityMismatch = errors.New("payment authority mismatch")
	// ErrSettlementInvariant marks a broken internal invariant during settlement.
	// The enclosing transaction is rolled back.
	ErrSettlementInvariant = errors.New("settlement invariant violated")
	// ErrInvalidCredentials is returned on failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError aggregates every offending input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// ProductUnavailableError is returned when a product is no longer in the catalog.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is unavailable", e.ProductID)
}

// InsufficientInventoryError is returned when stock cannot cover a quantity.
type InsufficientInventoryError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for product %s (requested: %d, available: %d)",
		e.ProductID, e.Requested, e.Available)
}

// GatewayTransportError means the gateway could not be reached; the outcome
// is unknown and the operation is safe to retry.
type GatewayTransportError struct {
	Op  string
	Err error
}

func (e *GatewayTransportError) Error() string {
	return fmt.Sprintf("%s: payment gateway unavailable: %v", e.Op, e.Err)
}

func (e *GatewayTransportError) Unwrap() error {
	return e.Err
}

// GatewayRejectedError means the gateway refused the payment attempt. A new
// payment has to be initiated.
type GatewayRejectedError struct {
	Op     string
	Status int
}

func (e *GatewayRejectedError) Error() string {
	return fmt.Sprintf("%s: payment rejected by gateway (status %d)", e.Op, e.Status)
}
