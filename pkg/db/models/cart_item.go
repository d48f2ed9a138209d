package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem captures the unit price at the moment the line was added, so a
// later catalog price change does not silently reprice an open cart.
type CartItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index;uniqueIndex:uniq_cart_line,priority:1"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uniq_cart_line,priority:2"`
	Product        *Product        `gorm:"foreignKey:ProductID"`
	VariantID      *uuid.UUID      `gorm:"column:variant_id;type:uuid;uniqueIndex:uniq_cart_line,priority:3"`
	Variant        *ProductVariant `gorm:"foreignKey:VariantID"`
	Quantity       int             `gorm:"column:quantity;not null"`
	UnitPriceCents int64           `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineTotalCents is quantity times the captured unit price.
func (i *CartItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}
