package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a customer rating for a product, one per user per product.
type Review struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;index;uniqueIndex:uniq_review_user,priority:1"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uniq_review_user,priority:2"`
	User       *User     `gorm:"foreignKey:UserID"`
	Rating     int       `gorm:"column:rating;not null"`
	Title      string    `gorm:"column:title;not null;default:''"`
	Body       string    `gorm:"column:body;not null;default:''"`
	IsApproved bool      `gorm:"column:is_approved;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
