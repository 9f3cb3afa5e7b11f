package repositories

import (
	"context"

	"checkout/internal/models"
)

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	// DecrementInventory fails with ErrInsufficientInventory when stock is short.
	DecrementInventory(ctx context.Context, id string, qty int) error
	IncrementSold(ctx context.Context, id string, qty int) error
}
