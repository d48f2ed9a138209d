package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShippingMethod is a flat-rate delivery option offered at checkout.
type ShippingMethod struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string    `gorm:"column:name;not null"`
	Code             string    `gorm:"column:code;not null;uniqueIndex"`
	PriceCents       int64     `gorm:"column:price_cents;not null;default:0"`
	EstimatedDaysMin int       `gorm:"column:estimated_days_min;not null;default:0"`
	EstimatedDaysMax int       `gorm:"column:estimated_days_max;not null;default:0"`
	IsActive         bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *ShippingMethod) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
