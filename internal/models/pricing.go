package models

import "github.com/shopspring/decimal"

// Shipping tiers in grams and currency units. Intervals are half-open [lo, hi).
const (
	ShippingMidWeight  = 1000
	ShippingHighWeight = 2000

	ShippingLowCost  int64 = 20000
	ShippingMidCost  int64 = 30000
	ShippingHighCost int64 = 50000
)

// ShippingCost returns the post cost for a parcel of the given total weight.
func ShippingCost(weight int) int64 {
	switch {
	case weight < ShippingMidWeight:
		return ShippingLowCost
	case weight < ShippingHighWeight:
		return ShippingMidCost
	default:
		return ShippingHighCost
	}
}

var hundred = decimal.NewFromInt(100)

// DiscountedTotal applies a percentage discount to a merchandise subtotal,
// rounding half-up to whole currency units. Shipping is never discounted.
func DiscountedTotal(subtotal int64, discount int) int64 {
	if discount <= 0 {
		return subtotal
	}
	if discount > 100 {
		discount = 100
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(discount))).Div(hundred)
	return decimal.NewFromInt(subtotal).Mul(factor).Round(0).IntPart()
}

// loyaltyBracket is a half-open range (lo, hi] of order totals.
type loyaltyBracket struct {
	lo, hi int64 // hi == 0 means unbounded
	points int
}

var loyaltyBrackets = []loyaltyBracket{
	{lo: 0, hi: 100_000, points: 10},
	{lo: 100_000, hi: 500_000, points: 20},
	{lo: 500_000, hi: 2_000_000, points: 30},
	{lo: 2_000_000, hi: 10_000_000, points: 40},
	{lo: 10_000_000, hi: 0, points: 60},
}

// LoyaltyPoints returns the points earned for an order with the given total cost.
func LoyaltyPoints(total int64) int {
	for _, b := range loyaltyBrackets {
		if total <= b.lo {
			continue
		}
		if b.hi == 0 || total <= b.hi {
			return b.points
		}
	}
	return 0
}
