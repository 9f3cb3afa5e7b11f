package models

import "time"

// OrderStatus mirrors the settlement state machine.
type OrderStatus string

const (
	OrderStatusCreated     OrderStatus = "created"
	OrderStatusRequestSent OrderStatus = "request_sent"
	OrderStatusPaid        OrderStatus = "paid"
	OrderStatusFailed      OrderStatus = "failed"
)

// OrderItem is an immutable snapshot of a cart line taken at checkout.
type OrderItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID     string    `json:"order_id" gorm:"index;type:varchar(36);not null"`
	ProductID   string    `json:"product_id" gorm:"index;type:varchar(36);not null"`
	ProductName string    `json:"product_name" gorm:"type:varchar(100)"`
	UnitPrice   int64     `json:"unit_price"` // Price at the time of order
	Quantity    int       `json:"quantity"`
	Weight      int       `json:"weight"` // Grams per unit at the time of order
	CreatedAt   time.Time `json:"created_at"`
}

// Cost returns unit price times quantity.
func (i OrderItem) Cost() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Order represents a customer order. Orders are never deleted.
type Order struct {
	ID         string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BuyerID    *string     `json:"buyer_id" gorm:"index;type:varchar(36)"`
	Buyer      *User       `json:"-" gorm:"foreignKey:BuyerID;constraint:OnDelete:SET NULL"`
	FirstName  string      `json:"first_name" gorm:"type:varchar(100)"`
	LastName   string      `json:"last_name" gorm:"type:varchar(100)"`
	Phone      string      `json:"phone" gorm:"type:varchar(11)"`
	Address    string      `json:"address" gorm:"type:varchar(250)"`
	PostalCode string      `json:"postal_code" gorm:"type:varchar(10)"`
	City       string      `json:"city" gorm:"type:varchar(50)"`
	Province   string      `json:"province" gorm:"type:varchar(50)"`
	CouponCode string      `json:"coupon_code,omitempty" gorm:"type:varchar(32)"`
	Discount   int         `json:"discount"` // Percent applied to the merchandise subtotal
	Status     OrderStatus `json:"status" gorm:"type:varchar(20);index"`
	Paid       bool        `json:"paid"`
	RefID      string      `json:"ref_id,omitempty" gorm:"type:varchar(100)"`
	Authority  string      `json:"-" gorm:"type:varchar(64)"` // Last authority issued by the gateway
	Items      []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	CreatedAt  time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Subtotal is the undiscounted sum of the item snapshots.
func (o *Order) Subtotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Cost()
	}
	return total
}

// TotalCost is the merchandise cost after the order discount.
func (o *Order) TotalCost() int64 {
	return DiscountedTotal(o.Subtotal(), o.Discount)
}

// TotalWeight is the parcel weight in grams.
func (o *Order) TotalWeight() int {
	w := 0
	for _, item := range o.Items {
		w += item.Weight * item.Quantity
	}
	return w
}

// ShippingCost is the tiered post cost of the order.
func (o *Order) ShippingCost() int64 {
	return ShippingCost(o.TotalWeight())
}

// FinalCost is the amount charged through the payment gateway.
func (o *Order) FinalCost() int64 {
	return o.TotalCost() + o.ShippingCost()
}

// OwnedBy reports whether the order belongs to the given user.
func (o *Order) OwnedBy(userID string) bool {
	return o.BuyerID != nil && *o.BuyerID == userID
}
