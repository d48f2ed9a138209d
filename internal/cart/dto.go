package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
)

// CartDTO is the full cart payload with computed totals.
type CartDTO struct {
	ID            uuid.UUID     `json:"id"`
	Items         []CartItemDTO `json:"items"`
	ItemCount     int           `json:"item_count"`
	SubtotalCents int64         `json:"subtotal_cents"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CartItemDTO is a single cart line with its captured unit price.
type CartItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	ProductName    string     `json:"product_name"`
	ProductSlug    string     `json:"product_slug"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	VariantName    string     `json:"variant_name,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	LineTotalCents int64      `json:"line_total_cents"`
}

// NewCartDTO maps the cart and its preloaded items.
func NewCartDTO(c *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:            c.ID,
		Items:         make([]CartItemDTO, 0, len(c.Items)),
		ItemCount:     c.ItemCount(),
		SubtotalCents: c.SubtotalCents(),
		UpdatedAt:     c.UpdatedAt,
	}
	for i := range c.Items {
		item := &c.Items[i]
		line := CartItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents(),
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
			line.ProductSlug = item.Product.Slug
		}
		if item.Variant != nil {
			line.VariantName = item.Variant.Name
		}
		dto.Items = append(dto.Items, line)
	}
	return dto
}
