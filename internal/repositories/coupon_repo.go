package repositories

import (
	"context"

	"checkout/internal/models"
)

// CouponRepository defines the interface for coupon data access.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	// UsageCount returns how many times the user has redeemed the coupon.
	UsageCount(ctx context.Context, code, userID string) (int, error)
	// RecordUsage increments the global and per-user usage counters.
	RecordUsage(ctx context.Context, code, userID string) error
}
