package models

import (
	"iter"
	"slices"
)

// CartEntry is a snapshot of a product line taken when it was last added.
type CartEntry struct {
	ProductID string `json:"product_id"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Weight    int    `json:"weight"` // Grams per unit
}

// Cost returns unit price times quantity.
func (e CartEntry) Cost() int64 {
	return e.UnitPrice * int64(e.Quantity)
}

// CartCoupon is the coupon applied to a cart.
type CartCoupon struct {
	Code     string `json:"code"`
	Discount int    `json:"discount"`
}

// Cart is the session-scoped shopping cart.
type Cart struct {
	Entries map[string]*CartEntry `json:"entries"`
	Coupon  *CartCoupon           `json:"coupon,omitempty"`
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{Entries: make(map[string]*CartEntry)}
}

// Add upserts the product line with the given price and weight snapshot and
// increments its quantity.
func (c *Cart) Add(product *Product, qty int) {
	if qty < 1 {
		qty = 1
	}
	if c.Entries == nil {
		c.Entries = make(map[string]*CartEntry)
	}
	entry, ok := c.Entries[product.ID]
	if !ok {
		entry = &CartEntry{ProductID: product.ID}
		c.Entries[product.ID] = entry
	}
	entry.UnitPrice = product.EffectivePrice()
	entry.Weight = product.Weight
	entry.Quantity += qty
}

// Decrease decrements the quantity of a product, removing the line when it
// reaches zero. It reports whether the product was in the cart.
func (c *Cart) Decrease(productID string) bool {
	entry, ok := c.Entries[productID]
	if !ok {
		return false
	}
	entry.Quantity--
	if entry.Quantity <= 0 {
		delete(c.Entries, productID)
	}
	return true
}

// Remove drops the product line entirely.
func (c *Cart) Remove(productID string) {
	delete(c.Entries, productID)
}

// Entry returns a copy of the line for productID.
func (c *Cart) Entry(productID string) (CartEntry, bool) {
	entry, ok := c.Entries[productID]
	if !ok {
		return CartEntry{}, false
	}
	return *entry, true
}

// All yields the cart lines ordered by product id. The sequence is
// restartable and stable until the cart is mutated.
func (c *Cart) All() iter.Seq[CartEntry] {
	return func(yield func(CartEntry) bool) {
		ids := make([]string, 0, len(c.Entries))
		for id := range c.Entries {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			if !yield(*c.Entries[id]) {
				return
			}
		}
	}
}

// Len returns the number of units in the cart.
func (c *Cart) Len() int {
	n := 0
	for _, e := range c.Entries {
		n += e.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Entries) == 0
}

// Discount returns the applied coupon percent, or zero.
func (c *Cart) Discount() int {
	if c.Coupon == nil {
		return 0
	}
	return c.Coupon.Discount
}

// TotalPrice is the merchandise subtotal before discount.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, e := range c.Entries {
		total += e.Cost()
	}
	return total
}

// TotalWeight is the parcel weight in grams.
func (c *Cart) TotalWeight() int {
	w := 0
	for _, e := range c.Entries {
		w += e.Weight * e.Quantity
	}
	return w
}

// ShippingCost is the tiered post cost for the cart weight.
func (c *Cart) ShippingCost() int64 {
	return ShippingCost(c.TotalWeight())
}

// FinalCost is the discounted subtotal plus shipping.
func (c *Cart) FinalCost() int64 {
	return DiscountedTotal(c.TotalPrice(), c.Discount()) + c.ShippingCost()
}
