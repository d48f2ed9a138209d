package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
)

// IntentDTO is returned when a PaymentIntent is created or reused. The client
// secret is only ever exposed to the order's owner.
type IntentDTO struct {
	PaymentID      uuid.UUID `json:"payment_id"`
	StripeIntentID string    `json:"stripe_intent_id"`
	ClientSecret   string    `json:"client_secret,omitempty"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
}

// PaymentDTO is the payment record attached to an order.
type PaymentDTO struct {
	ID                  uuid.UUID   `json:"id"`
	OrderID             uuid.UUID   `json:"order_id"`
	StripeIntentID      string      `json:"stripe_intent_id"`
	Status              string      `json:"status"`
	Method              string      `json:"method"`
	Currency            string      `json:"currency"`
	AmountCents         int64       `json:"amount_cents"`
	AmountRefundedCents int64       `json:"amount_refunded_cents"`
	FailureCode         string      `json:"failure_code,omitempty"`
	FailureMessage      string      `json:"failure_message,omitempty"`
	Refunds             []RefundDTO `json:"refunds,omitempty"`
	SucceededAt         *time.Time  `json:"succeeded_at,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
}

// RefundDTO is a single refund drawn against a payment.
type RefundDTO struct {
	ID             uuid.UUID `json:"id"`
	StripeRefundID string    `json:"stripe_refund_id"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason"`
	AmountCents    int64     `json:"amount_cents"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PaymentSummary is the lightweight row returned by the list endpoint.
type PaymentSummary struct {
	ID                  uuid.UUID           `json:"id"`
	OrderID             uuid.UUID           `json:"order_id"`
	OrderNumber         string              `json:"order_number"`
	StripeIntentID      string              `json:"stripe_intent_id"`
	Status              enums.PaymentStatus `json:"status"`
	AmountCents         int64               `json:"amount_cents"`
	AmountRefundedCents int64               `json:"amount_refunded_cents"`
	Currency            string              `json:"currency"`
	CreatedAt           time.Time           `json:"created_at"`
}

// PaymentListResult pairs a page of summaries with the next cursor.
type PaymentListResult struct {
	Payments   []PaymentSummary `json:"payments"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// NewPaymentDTO maps the persisted payment with preloaded refunds.
func NewPaymentDTO(p *models.Payment) *PaymentDTO {
	dto := &PaymentDTO{
		ID:                  p.ID,
		OrderID:             p.OrderID,
		StripeIntentID:      p.StripeIntentID,
		Status:              p.Status.String(),
		Method:              p.Method.String(),
		Currency:            p.Currency,
		AmountCents:         p.AmountCents,
		AmountRefundedCents: p.AmountRefundedCents,
		FailureCode:         p.FailureCode,
		FailureMessage:      p.FailureMessage,
		SucceededAt:         p.SucceededAt,
		CreatedAt:           p.CreatedAt,
	}
	for i := range p.Refunds {
		r := &p.Refunds[i]
		dto.Refunds = append(dto.Refunds, RefundDTO{
			ID:             r.ID,
			StripeRefundID: r.StripeRefundID,
			Status:         r.Status.String(),
			Reason:         r.Reason.String(),
			AmountCents:    r.AmountCents,
			Note:           r.Note,
			CreatedAt:      r.CreatedAt,
		})
	}
	return dto
}
