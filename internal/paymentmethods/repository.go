package paymentmethods

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
)

// Repository wires together saved payment method persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindCustomerByUser loads the user's Stripe customer link.
func (r *Repository) FindCustomerByUser(ctx context.Context, userID uuid.UUID) (*models.StripeCustomer, error) {
	var cust models.StripeCustomer
	if err := r.db.WithContext(ctx).First(&cust, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &cust, nil
}

// CreateCustomer inserts a new Stripe customer link.
func (r *Repository) CreateCustomer(ctx context.Context, cust *models.StripeCustomer) (*models.StripeCustomer, error) {
	if err := r.db.WithContext(ctx).Create(cust).Error; err != nil {
		return nil, err
	}
	return cust, nil
}

// ListActiveByUser returns the user's active methods, default first then
// newest first.
func (r *Repository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedPaymentMethod, error) {
	var methods []models.SavedPaymentMethod
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&methods).
		Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}

// CountByUser counts the user's methods including deactivated ones, so a
// re-added method after removal does not become the default again.
func (r *Repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SavedPaymentMethod{}).
		Where("user_id = ?", userID).
		Count(&count).
		Error
	return count, err
}

// FindActiveByIDAndUser loads an active method owned by the user.
func (r *Repository) FindActiveByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.SavedPaymentMethod, error) {
	var method models.SavedPaymentMethod
	err := r.db.WithContext(ctx).
		First(&method, "id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		Error
	if err != nil {
		return nil, err
	}
	return &method, nil
}

// Create inserts a new saved method row.
func (r *Repository) Create(ctx context.Context, method *models.SavedPaymentMethod) (*models.SavedPaymentMethod, error) {
	if err := r.db.WithContext(ctx).Create(method).Error; err != nil {
		return nil, err
	}
	return method, nil
}

// Deactivate soft-deletes a method. A removed default leaves the user with
// no default until they save another method.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SavedPaymentMethod{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "is_default": false}).
		Error
}
