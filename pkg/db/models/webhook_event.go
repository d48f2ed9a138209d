package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookEvent is the durable dedupe record for inbound Stripe events. The
// unique StripeEventID makes replayed deliveries insert-conflict instead of
// double-processing.
type WebhookEvent struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StripeEventID string     `gorm:"column:stripe_event_id;not null;uniqueIndex"`
	EventType     string     `gorm:"column:event_type;not null"`
	Payload       []byte     `gorm:"column:payload;type:jsonb"`
	ProcessedAt   *time.Time `gorm:"column:processed_at"`
	ProcessError  string     `gorm:"column:process_error;not null;default:''"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime;index"`
}

func (e *WebhookEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
