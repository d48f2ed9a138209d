package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductVariant is a sellable variation of a product (size, color).
// PriceAdjustmentCents is added to the parent product price, and may be
// negative.
type ProductVariant struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID            uuid.UUID `gorm:"column:product_id;type:uuid;not null;index;uniqueIndex:uniq_variant_sku,priority:1"`
	Name                 string    `gorm:"column:name;not null"`
	SKU                  string    `gorm:"column:sku;not null;uniqueIndex:uniq_variant_sku,priority:2"`
	PriceAdjustmentCents int64     `gorm:"column:price_adjustment_cents;not null;default:0"`
	StockQuantity        int       `gorm:"column:stock_quantity;not null;default:0"`
	IsActive             bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
