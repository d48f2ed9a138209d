package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
	"github.com/aaronbui99/storefront-backend/pkg/types"
)

// OrderDTO is the full order payload returned to the owning customer.
type OrderDTO struct {
	ID              uuid.UUID      `json:"id"`
	Number          string         `json:"number"`
	Status          string         `json:"status"`
	Currency        string         `json:"currency"`
	SubtotalCents   int64          `json:"subtotal_cents"`
	TaxCents        int64          `json:"tax_cents"`
	ShippingCents   int64          `json:"shipping_cents"`
	TotalCents      int64          `json:"total_cents"`
	ShippingAddress types.Address  `json:"shipping_address"`
	BillingAddress  types.Address  `json:"billing_address"`
	CustomerNote    string         `json:"customer_note,omitempty"`
	TrackingNumber  string         `json:"tracking_number,omitempty"`
	Items           []OrderItemDTO `json:"items"`
	History         []HistoryDTO   `json:"history,omitempty"`
	ConfirmedAt     *time.Time     `json:"confirmed_at,omitempty"`
	ShippedAt       *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time     `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// OrderItemDTO is a denormalized order line.
type OrderItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	ProductName    string     `json:"product_name"`
	VariantName    string     `json:"variant_name,omitempty"`
	SKU            string     `json:"sku"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	TotalCents     int64      `json:"total_cents"`
}

// HistoryDTO is one audit row from the status trail.
type HistoryDTO struct {
	FromStatus string    `json:"from_status,omitempty"`
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderSummary is the lightweight row returned by the list endpoint.
type OrderSummary struct {
	ID         uuid.UUID         `json:"id"`
	Number     string            `json:"number"`
	Status     enums.OrderStatus `json:"status"`
	TotalCents int64             `json:"total_cents"`
	ItemCount  int               `json:"item_count"`
	CreatedAt  time.Time         `json:"created_at"`
}

// OrderListResult pairs a page of summaries with the next cursor.
type OrderListResult struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// NewOrderDTO maps the persisted order with preloaded items and history.
func NewOrderDTO(o *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:              o.ID,
		Number:          o.Number,
		Status:          o.Status.String(),
		Currency:        o.Currency,
		SubtotalCents:   o.SubtotalCents,
		TaxCents:        o.TaxCents,
		ShippingCents:   o.ShippingCents,
		TotalCents:      o.TotalCents,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		CustomerNote:    o.CustomerNote,
		TrackingNumber:  o.TrackingNumber,
		Items:           make([]OrderItemDTO, 0, len(o.Items)),
		ConfirmedAt:     o.ConfirmedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
	}
	for i := range o.Items {
		item := &o.Items[i]
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			ProductName:    item.ProductName,
			VariantName:    item.VariantName,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	for i := range o.History {
		h := &o.History[i]
		dto.History = append(dto.History, HistoryDTO{
			FromStatus: h.FromStatus.String(),
			Status:     h.Status.String(),
			Note:       h.Note,
			CreatedAt:  h.CreatedAt,
		})
	}
	return dto
}
