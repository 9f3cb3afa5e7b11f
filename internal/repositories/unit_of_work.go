package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the repositories that share one database handle.
type Repositories struct {
	Products ProductRepository
	Users    UserRepository
	Orders   OrderRepository
	Coupons  CouponRepository
}

// NewGORMRepositories builds every GORM repository on db.
func NewGORMRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Products: NewGORMProductRepository(db),
		Users:    NewGORMUserRepository(db),
		Orders:   NewGORMOrderRepository(db),
		Coupons:  NewGORMCouponRepository(db),
	}
}

// UnitOfWork runs fn against repositories bound to a single transaction.
// Either everything fn wrote commits, or none of it does.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Repositories) error) error
}

// GORMUnitOfWork implements UnitOfWork with gorm transactions.
type GORMUnitOfWork struct {
	db *gorm.DB
}

// NewGORMUnitOfWork creates a new GORMUnitOfWork.
func NewGORMUnitOfWork(db *gorm.DB) *GORMUnitOfWork {
	return &GORMUnitOfWork{db: db}
}

// Do begins a transaction, runs fn, and commits unless fn returns an error
// or panics.
func (u *GORMUnitOfWork) Do(ctx context.Context, fn func(tx Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMRepositories(tx))
	})
}
