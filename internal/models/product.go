package models

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a product in the store catalog.
type Product struct {
	ID          string         `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string         `json:"name" gorm:"type:varchar(100)" validate:"required,min=3,max=100"`
	Description string         `json:"description" validate:"omitempty,max=500"`
	Price       int64          `json:"price" validate:"required,gt=0"`                // Original price
	Discount    int            `json:"discount" validate:"gte=0,lte=100"`             // Catalog discount percent
	Weight      int            `json:"weight" validate:"gte=0"`                       // Grams per unit
	Inventory   int            `json:"inventory" gorm:"check:inventory >= 0" validate:"gte=0"`
	SoldCount   int            `json:"sold_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// EffectivePrice is the unit price a cart snapshots: the original price
// reduced by the catalog discount.
func (p *Product) EffectivePrice() int64 {
	if p.Discount <= 0 {
		return p.Price
	}
	return p.Price * int64(100-p.Discount) / 100
}
