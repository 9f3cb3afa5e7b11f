package repositories

import (
	"context"
	"errors"
	"fmt"

	"checkout/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var _ ProductRepository = (*GORMProductRepository)(nil)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products from the database.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("name").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(product).Select("*").Omit("created_at", "sold_count").Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s for update: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Delete soft-deletes a product. Carts and orders referencing it keep their
// snapshots, but the product is no longer available.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// DecrementInventory subtracts qty from the stock of a product. The guard in
// the WHERE clause keeps inventory from going negative under concurrency.
func (r *GORMProductRepository) DecrementInventory(ctx context.Context, id string, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND inventory >= ?", id, qty).
		Update("inventory", gorm.Expr("inventory - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement inventory of product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("product %s: %w", id, ErrInsufficientInventory)
}

// IncrementSold adds qty to the sold counter of a product.
func (r *GORMProductRepository) IncrementSold(ctx context.Context, id string, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("sold_count", gorm.Expr("sold_count + ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to increment sold count of product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return nil
}
