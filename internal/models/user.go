package models

import "time"

// User is a buyer account. Accounts are provisioned by phone verification.
type User struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Phone         string    `json:"phone" gorm:"uniqueIndex;type:varchar(11)"`
	Password      string    `json:"-" gorm:"type:varchar(255)"` // bcrypt hash
	LoyaltyPoints int       `json:"loyalty_points"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
