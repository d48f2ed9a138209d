package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/enums"
	"github.com/aaronbui99/storefront-backend/pkg/types"
)

// Order is the immutable record of a checkout. Monetary fields are minor
// currency units captured server-side at checkout time.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number          string               `gorm:"column:number;not null;uniqueIndex"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	User            *User                `gorm:"foreignKey:UserID"`
	Status          enums.OrderStatus    `gorm:"column:status;not null;default:'pending'"`
	Currency        string               `gorm:"column:currency;not null;default:'usd'"`
	SubtotalCents   int64                `gorm:"column:subtotal_cents;not null"`
	TaxCents        int64                `gorm:"column:tax_cents;not null;default:0"`
	ShippingCents   int64                `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents      int64                `gorm:"column:total_cents;not null"`
	ShippingAddress types.Address        `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress  types.Address        `gorm:"column:billing_address;type:jsonb;serializer:json"`
	CustomerNote    string               `gorm:"column:customer_note;not null;default:''"`
	TrackingNumber  string               `gorm:"column:tracking_number;not null;default:''"`
	Items           []OrderItem          `gorm:"foreignKey:OrderID"`
	History         []OrderStatusHistory `gorm:"foreignKey:OrderID"`
	ConfirmedAt     *time.Time           `gorm:"column:confirmed_at"`
	ShippedAt       *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	CancelledAt     *time.Time           `gorm:"column:cancelled_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Cancellable reports whether the order may still be cancelled by the
// customer.
func (o *Order) Cancellable() bool {
	return o.Status == enums.OrderStatusPending || o.Status == enums.OrderStatusConfirmed
}
