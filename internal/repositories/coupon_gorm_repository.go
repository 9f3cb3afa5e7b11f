package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ CouponRepository = (*GORMCouponRepository)(nil)

// GORMCouponRepository is a GORM implementation of CouponRepository.
type GORMCouponRepository struct {
	db *gorm.DB
}

// NewGORMCouponRepository creates a new instance of GORMCouponRepository.
func NewGORMCouponRepository(db *gorm.DB) *GORMCouponRepository {
	return &GORMCouponRepository{db: db}
}

// GetByCode looks a coupon up by its case-insensitive code.
func (r *GORMCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "code = ?", strings.ToUpper(code)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("coupon %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get coupon %s: %w", code, err)
	}
	return &coupon, nil
}

// Create stores a coupon with its code upper-cased.
func (r *GORMCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = strings.ToUpper(coupon.Code)
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("coupon %s: %w", coupon.Code, ErrDuplicate)
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

// UsageCount returns the per-user redemption counter.
func (r *GORMCouponRepository) UsageCount(ctx context.Context, code, userID string) (int, error) {
	var usage models.CouponUsage
	err := r.db.WithContext(ctx).
		First(&usage, "coupon_code = ? AND user_id = ?", strings.ToUpper(code), userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get usage of coupon %s: %w", code, err)
	}
	return usage.Uses, nil
}

// RecordUsage increments used_count and upserts the per-user usage row.
func (r *GORMCouponRepository) RecordUsage(ctx context.Context, code, userID string) error {
	code = strings.ToUpper(code)
	db := r.db.WithContext(ctx)

	res := db.Model(&models.Coupon{}).
		Where("code = ?", code).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to record usage of coupon %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("coupon %s: %w", code, ErrNotFound)
	}
	if userID == "" {
		return nil
	}

	usage := models.CouponUsage{CouponCode: code, UserID: userID, Uses: 1, UpdatedAt: time.Now()}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "coupon_code"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"uses":       gorm.Expr("coupon_usages.uses + 1"),
			"updated_at": usage.UpdatedAt,
		}),
	}).Create(&usage).Error
	if err != nil {
		return fmt.Errorf("failed to record usage of coupon %s by user %s: %w", code, userID, err)
	}
	return nil
}
