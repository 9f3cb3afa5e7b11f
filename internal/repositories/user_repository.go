package repositories

import (
	"context"

	"checkout/internal/models"
)

// UserRepository defines the interface for buyer account data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	AddLoyaltyPoints(ctx context.Context, id string, points int) error
}
