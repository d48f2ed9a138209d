package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product prices are stored in minor currency units (cents).
type Product struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID     uuid.UUID        `gorm:"column:category_id;type:uuid;not null;index"`
	Category       *Category        `gorm:"foreignKey:CategoryID"`
	Name           string           `gorm:"column:name;not null"`
	Slug           string           `gorm:"column:slug;not null;uniqueIndex"`
	Description    string           `gorm:"column:description;not null;default:''"`
	PriceCents     int64            `gorm:"column:price_cents;not null"`
	CompareAtCents *int64           `gorm:"column:compare_at_cents"`
	SKU            string           `gorm:"column:sku;not null;uniqueIndex"`
	StockQuantity  int              `gorm:"column:stock_quantity;not null;default:0"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	IsFeatured     bool             `gorm:"column:is_featured;not null;default:false"`
	WeightGrams    *int             `gorm:"column:weight_grams"`
	Variants       []ProductVariant `gorm:"foreignKey:ProductID"`
	Images         []ProductImage   `gorm:"foreignKey:ProductID"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// InStock reports whether at least one unit can be sold at the product level.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}
