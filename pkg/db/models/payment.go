package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/enums"
)

// Payment tracks a Stripe PaymentIntent for an order. AmountRefundedCents
// accumulates across refunds and never exceeds AmountCents.
type Payment struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Order               *Order              `gorm:"foreignKey:OrderID"`
	StripeIntentID      string              `gorm:"column:stripe_intent_id;not null;uniqueIndex"`
	Status              enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	Method              enums.PaymentMethod `gorm:"column:method;not null;default:'stripe_card'"`
	Currency            string              `gorm:"column:currency;not null;default:'usd'"`
	AmountCents         int64               `gorm:"column:amount_cents;not null"`
	AmountRefundedCents int64               `gorm:"column:amount_refunded_cents;not null;default:0"`
	FailureCode         string              `gorm:"column:failure_code;not null;default:''"`
	FailureMessage      string              `gorm:"column:failure_message;not null;default:''"`
	Refunds             []PaymentRefund     `gorm:"foreignKey:PaymentID"`
	SucceededAt         *time.Time          `gorm:"column:succeeded_at"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RefundableCents is the remaining balance a new refund may draw on.
func (p *Payment) RefundableCents() int64 {
	return p.AmountCents - p.AmountRefundedCents
}
