package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/enums"
)

type PaymentRefund struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID      uuid.UUID          `gorm:"column:payment_id;type:uuid;not null;index"`
	StripeRefundID string             `gorm:"column:stripe_refund_id;not null;uniqueIndex"`
	Status         enums.RefundStatus `gorm:"column:status;not null;default:'pending'"`
	Reason         enums.RefundReason `gorm:"column:reason;not null;default:'requested_by_customer'"`
	AmountCents    int64              `gorm:"column:amount_cents;not null"`
	Note           string             `gorm:"column:note;not null;default:''"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *PaymentRefund) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
