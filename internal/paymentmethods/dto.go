package paymentmethods

import (
	"time"

	"github.com/google/uuid"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
)

// MethodDTO is a saved payment method as shown to its owner. Only the
// card's display fields are exposed, never the Stripe method id.
type MethodDTO struct {
	ID           uuid.UUID `json:"id"`
	Method       string    `json:"method"`
	CardBrand    string    `json:"card_brand,omitempty"`
	CardLast4    string    `json:"card_last4,omitempty"`
	CardExpMonth int       `json:"card_exp_month,omitempty"`
	CardExpYear  int       `json:"card_exp_year,omitempty"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
}

// MethodListResult wraps the owner's saved methods.
type MethodListResult struct {
	PaymentMethods []MethodDTO `json:"payment_methods"`
}

// NewMethodDTO maps a persisted method row.
func NewMethodDTO(m *models.SavedPaymentMethod) *MethodDTO {
	return &MethodDTO{
		ID:           m.ID,
		Method:       m.Method.String(),
		CardBrand:    m.CardBrand,
		CardLast4:    m.CardLast4,
		CardExpMonth: m.CardExpMonth,
		CardExpYear:  m.CardExpYear,
		IsDefault:    m.IsDefault,
		CreatedAt:    m.CreatedAt,
	}
}
