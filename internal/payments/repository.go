package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/internal/repo"
	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
	"github.com/aaronbui99/storefront-backend/pkg/pagination"
)

// Repository wires together payment persistence helpers.
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

// Create inserts a new payment row.
func (r *Repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// FindByID loads the payment with refunds preloaded.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Refunds", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&payment, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByIntentID loads the payment keyed by its Stripe PaymentIntent id.
func (r *Repository) FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "stripe_intent_id = ?", intentID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindLatestByOrderID returns the most recent payment for an order.
func (r *Repository) FindLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Refunds", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).
		Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// LockForUpdate reloads the payment row under FOR UPDATE inside the supplied
// transaction so refund balance checks serialize.
func (r *Repository) LockForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := repo.LockForUpdate(r.db.WithContext(ctx)).
		First(&payment, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// LockByIntentID is LockForUpdate keyed by the Stripe PaymentIntent id.
func (r *Repository) LockByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	err := repo.LockForUpdate(r.db.WithContext(ctx)).
		First(&payment, "stripe_intent_id = ?", intentID).
		Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Updates applies the given column updates to a payment row.
func (r *Repository) Updates(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

// CreateRefund inserts a refund row.
func (r *Repository) CreateRefund(ctx context.Context, refund *models.PaymentRefund) (*models.PaymentRefund, error) {
	if err := r.db.WithContext(ctx).Create(refund).Error; err != nil {
		return nil, err
	}
	return refund, nil
}

// ListByUser pages through payments on the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*PaymentListResult, error) {
	pageSize := pagination.NormalizeLimit(page.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(page.Limit)

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("payments p").
		Select("p.id, p.order_id, o.number AS order_number, p.stripe_intent_id, p.status, "+
			"p.amount_cents, p.amount_refunded_cents, p.currency, p.created_at").
		Joins("JOIN orders o ON o.id = p.order_id").
		Where("o.user_id = ?", userID)

	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []paymentSummaryRecord
	if err := qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer).Scan(&records).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > pageSize {
		records = records[:pageSize]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	payments := make([]PaymentSummary, 0, len(records))
	for _, record := range records {
		payments = append(payments, PaymentSummary{
			ID:                  record.ID,
			OrderID:             record.OrderID,
			OrderNumber:         record.OrderNumber,
			StripeIntentID:      record.StripeIntentID,
			Status:              record.Status,
			AmountCents:         record.AmountCents,
			AmountRefundedCents: record.AmountRefundedCents,
			Currency:            record.Currency,
			CreatedAt:           record.CreatedAt,
		})
	}
	return &PaymentListResult{Payments: payments, NextCursor: nextCursor}, nil
}

type paymentSummaryRecord struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	OrderNumber         string
	StripeIntentID      string
	Status              enums.PaymentStatus
	AmountCents         int64
	AmountRefundedCents int64
	Currency            string
	CreatedAt           time.Time
}

// HasActivePayment reports whether the order already has a payment that is
// pending, processing, or succeeded.
func (r *Repository) HasActivePayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, []enums.PaymentStatus{
			enums.PaymentStatusPending,
			enums.PaymentStatusProcessing,
			enums.PaymentStatusSucceeded,
		}).
		Count(&count).
		Error
	return count > 0, err
}
