package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
)

// Repository covers the checkout-owned persistence: shipping methods and
// stock adjustments.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListShippingMethods returns active methods, cheapest first.
func (r *Repository) ListShippingMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	var rows []models.ShippingMethod
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price_cents ASC").
		Find(&rows).
		Error
	return rows, err
}

// FindShippingMethod resolves an active method by its code.
func (r *Repository) FindShippingMethod(ctx context.Context, code string) (*models.ShippingMethod, error) {
	var method models.ShippingMethod
	err := r.db.WithContext(ctx).
		First(&method, "code = ? AND is_active = ?", code, true).
		Error
	if err != nil {
		return nil, err
	}
	return &method, nil
}

// DecrementProductStock subtracts qty guarded by the current stock level.
// Returns the number of rows updated: zero means insufficient stock.
func (r *Repository) DecrementProductStock(ctx context.Context, productID uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	return result.RowsAffected, result.Error
}

// DecrementVariantStock is DecrementProductStock for a variant row.
func (r *Repository) DecrementVariantStock(ctx context.Context, variantID uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND stock_quantity >= ?", variantID, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	return result.RowsAffected, result.Error
}
