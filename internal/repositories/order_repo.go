package repositories

import (
	"context"

	"checkout/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create persists the order together with its items.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetForUpdate loads the order and locks its row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	// UpdateStatus changes the status of an unpaid order.
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
	// RecordRequest stores the gateway authority of an unpaid order and moves
	// it to request_sent.
	RecordRequest(ctx context.Context, id, authority string) error
	// MarkPaid flips paid from false to true and records the reference id.
	// It reports false when the order was already paid.
	MarkPaid(ctx context.Context, id, refID string) (bool, error)
}
