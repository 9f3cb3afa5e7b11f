package models

import "time"

// Coupon grants a percentage discount on the merchandise subtotal.
type Coupon struct {
	Code         string     `json:"code" gorm:"primaryKey;type:varchar(32)"`
	Discount     int        `json:"discount" gorm:"check:discount BETWEEN 0 AND 100"`
	UsageLimit   int        `json:"usage_limit"`    // 0 means unlimited
	PerUserLimit int        `json:"per_user_limit"` // 0 means unlimited
	UsedCount    int        `json:"used_count"`
	Active       bool       `json:"active"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Exhausted reports whether the global usage limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit
}

// CouponUsage counts how many times a user has redeemed a coupon.
type CouponUsage struct {
	CouponCode string `gorm:"primaryKey;type:varchar(32)"`
	UserID     string `gorm:"primaryKey;type:varchar(36)"`
	Uses       int
	UpdatedAt  time.Time
}
