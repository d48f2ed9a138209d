package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/enums"
)

// OrderStatusHistory is an append-only audit row written on every status
// transition, including the initial pending row at checkout.
type OrderStatusHistory struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;not null;default:''"`
	Status     enums.OrderStatus `gorm:"column:status;not null"`
	Note       string            `gorm:"column:note;not null;default:''"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime;index"`
}

func (h *OrderStatusHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
