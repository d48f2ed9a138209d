package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/enums"
)

// SavedPaymentMethod is a reusable payment method attached to the user's
// Stripe customer. Removal deactivates the row instead of deleting it so
// past payments keep their reference.
type SavedPaymentMethod struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	StripeMethodID string              `gorm:"column:stripe_method_id;not null;uniqueIndex"`
	Method         enums.PaymentMethod `gorm:"column:method;not null;default:'stripe_card'"`
	CardBrand      string              `gorm:"column:card_brand;not null;default:''"`
	CardLast4      string              `gorm:"column:card_last4;not null;default:''"`
	CardExpMonth   int                 `gorm:"column:card_exp_month;not null;default:0"`
	CardExpYear    int                 `gorm:"column:card_exp_year;not null;default:0"`
	IsDefault      bool                `gorm:"column:is_default;not null;default:false"`
	IsActive       bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *SavedPaymentMethod) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
