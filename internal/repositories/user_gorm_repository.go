package repositories

import (
	"context"
	"errors"
	"fmt"

	"checkout/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var _ UserRepository = (*GORMUserRepository)(nil)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database. A second account for the same
// phone fails with ErrDuplicate.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user with phone %s: %w", user.Phone, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// GetByPhone retrieves a user by their phone number from the database.
func (r *GORMUserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "phone = ?", phone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with phone %s: %w", phone, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by phone %s: %w", phone, err)
	}
	return &user, nil
}

// ExistsByPhone reports whether an account is bound to the phone number.
func (r *GORMUserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("phone = ?", phone).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check phone %s: %w", phone, err)
	}
	return count > 0, nil
}

// AddLoyaltyPoints adds points to the user's balance.
func (r *GORMUserRepository) AddLoyaltyPoints(ctx context.Context, id string, points int) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("loyalty_points", gorm.Expr("loyalty_points + ?", points))
	if res.Error != nil {
		return fmt.Errorf("failed to add loyalty points to user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
	}
	return nil
}
