package catalog

import (
	"strings"

	"github.com/google/uuid"

	"github.com/aaronbui99/storefront-backend/pkg/pagination"
)

// Sort names the supported product orderings for the browse endpoint.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortName      Sort = "name"
	SortPriceLow  Sort = "price_low"
	SortPriceHigh Sort = "price_high"
)

// ParseSort normalizes the sort query value, defaulting to newest.
func ParseSort(raw string) (Sort, bool) {
	switch Sort(strings.TrimSpace(strings.ToLower(raw))) {
	case "", SortNewest:
		return SortNewest, true
	case SortName:
		return SortName, true
	case SortPriceLow:
		return SortPriceLow, true
	case SortPriceHigh:
		return SortPriceHigh, true
	default:
		return SortNewest, false
	}
}

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	CategorySlug  string     `json:"category,omitempty"`
	PriceMinCents *int64     `json:"price_min_cents,omitempty"`
	PriceMaxCents *int64     `json:"price_max_cents,omitempty"`
	Featured      *bool      `json:"featured,omitempty"`
	InStock       *bool      `json:"in_stock,omitempty"`
	Query         string     `json:"q,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate and filter the
// public catalog.
type ListProductsInput struct {
	Filters    ProductListFilters
	Sort       Sort
	Pagination pagination.Params
	Page       int
}
