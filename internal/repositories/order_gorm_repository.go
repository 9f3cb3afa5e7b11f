package repositories

import (
	"context"
	"errors"
	"fmt"

	"checkout/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ OrderRepository = (*GORMOrderRepository)(nil)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create inserts the order row and its item snapshots in one statement batch.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusCreated
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	if err := r.db.WithContext(ctx).Omit("Buyer").Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order with its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate retrieves an order with its items and takes a row lock on it.
// SQLite has no row locks; its single writer serializes the transaction instead.
func (r *GORMOrderRepository) GetForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GORMOrderRepository) get(db *gorm.DB, id string) (*models.Order, error) {
	var order models.Order
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("product_id")
	}).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// ListByBuyer returns the buyer's orders, newest first.
func (r *GORMOrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders of buyer %s: %w", buyerID, err)
	}
	return orders, nil
}

// UpdateStatus updates the status of an unpaid order.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND paid = ?", id, false).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("unpaid order with ID %s for status update: %w", id, ErrNotFound)
	}
	return nil
}

// RecordRequest remembers the authority of the latest payment request.
func (r *GORMOrderRepository) RecordRequest(ctx context.Context, id, authority string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND paid = ?", id, false).
		Updates(map[string]interface{}{
			"authority": authority,
			"status":    models.OrderStatusRequestSent,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to record payment request for order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("unpaid order with ID %s for payment request: %w", id, ErrNotFound)
	}
	return nil
}

// MarkPaid is a compare-and-set on the paid flag: only the first caller
// updates the row. A paid order always carries a reference id.
func (r *GORMOrderRepository) MarkPaid(ctx context.Context, id, refID string) (bool, error) {
	if refID == "" {
		return false, fmt.Errorf("failed to mark order %s paid: empty ref id", id)
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND paid = ?", id, false).
		Updates(map[string]interface{}{
			"paid":   true,
			"ref_id": refID,
			"status": models.OrderStatusPaid,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark order %s paid: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
