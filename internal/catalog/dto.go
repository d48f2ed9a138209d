package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
)

// ProductSummary is the lightweight row returned by the browse endpoint.
type ProductSummary struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	SKU            string     `json:"sku"`
	CategoryID     uuid.UUID  `json:"category_id"`
	PriceCents     int64      `json:"price_cents"`
	CompareAtCents *int64     `json:"compare_at_cents,omitempty"`
	PrimaryImage   *string    `json:"primary_image,omitempty"`
	InStock        bool       `json:"in_stock"`
	IsFeatured     bool       `json:"is_featured"`
	RatingAverage  *float64   `json:"rating_average,omitempty"`
	RatingCount    int        `json:"rating_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ProductListResult pairs a page of summaries with the next cursor.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ProductDTO is the full detail payload for a single product.
type ProductDTO struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Slug           string       `json:"slug"`
	SKU            string       `json:"sku"`
	Description    string       `json:"description"`
	CategoryID     uuid.UUID    `json:"category_id"`
	Category       *CategoryDTO `json:"category,omitempty"`
	PriceCents     int64        `json:"price_cents"`
	CompareAtCents *int64       `json:"compare_at_cents,omitempty"`
	StockQuantity  int          `json:"stock_quantity"`
	InStock        bool         `json:"in_stock"`
	IsFeatured     bool         `json:"is_featured"`
	Variants       []VariantDTO `json:"variants"`
	Images         []ImageDTO   `json:"images"`
	RatingAverage  *float64     `json:"rating_average,omitempty"`
	RatingCount    int          `json:"rating_count"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// VariantDTO exposes a sellable variant with its effective unit price.
type VariantDTO struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	SKU                  string    `json:"sku"`
	PriceAdjustmentCents int64     `json:"price_adjustment_cents"`
	PriceCents           int64     `json:"price_cents"`
	StockQuantity        int       `json:"stock_quantity"`
	InStock              bool      `json:"in_stock"`
}

type ImageDTO struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	AltText   string    `json:"alt_text,omitempty"`
	Position  int       `json:"position"`
	IsPrimary bool      `json:"is_primary"`
}

type CategoryDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
}

// ReviewDTO is the public shape of a product review.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewListResult pairs a page of reviews with the next cursor.
type ReviewListResult struct {
	Reviews    []ReviewDTO `json:"reviews"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// NewCategoryDTO maps the persisted category row.
func NewCategoryDTO(c *models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ParentID:    c.ParentID,
	}
}

// NewProductDTO builds the detail payload from the persisted model and the
// aggregated rating summary.
func NewProductDTO(p *models.Product, rating *RatingSummary) *ProductDTO {
	dto := &ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		SKU:            p.SKU,
		Description:    p.Description,
		CategoryID:     p.CategoryID,
		PriceCents:     p.PriceCents,
		CompareAtCents: p.CompareAtCents,
		StockQuantity:  p.StockQuantity,
		InStock:        p.InStock(),
		IsFeatured:     p.IsFeatured,
		Variants:       make([]VariantDTO, 0, len(p.Variants)),
		Images:         make([]ImageDTO, 0, len(p.Images)),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}

	if p.Category != nil {
		cat := NewCategoryDTO(p.Category)
		dto.Category = &cat
	}

	for _, v := range p.Variants {
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:                   v.ID,
			Name:                 v.Name,
			SKU:                  v.SKU,
			PriceAdjustmentCents: v.PriceAdjustmentCents,
			PriceCents:           p.PriceCents + v.PriceAdjustmentCents,
			StockQuantity:        v.StockQuantity,
			InStock:              v.StockQuantity > 0,
		})
	}

	for _, img := range p.Images {
		dto.Images = append(dto.Images, ImageDTO{
			ID:        img.ID,
			URL:       img.URL,
			AltText:   img.AltText,
			Position:  img.Position,
			IsPrimary: img.IsPrimary,
		})
	}

	if rating != nil && rating.Count > 0 {
		avg := rating.Average
		dto.RatingAverage = &avg
		dto.RatingCount = rating.Count
	}

	return dto
}

// NewReviewDTO maps the persisted review row.
func NewReviewDTO(r *models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Title:     r.Title,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
	}
}
