package catalog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/pagination"
)

// RatingSummary aggregates approved reviews for a product.
type RatingSummary struct {
	Average float64
	Count   int
}

// Repository wires together catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindProductByID loads the product without associations.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductDetail fetches a product with category, active variants, and
// ordered images preloaded.
func (r *Repository) GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("name ASC")
		}).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&product, "id = ? AND is_active = ?", id, true).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductDetailBySlug is GetProductDetail keyed by slug.
func (r *Repository) GetProductDetailBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("name ASC")
		}).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&product, "slug = ? AND is_active = ?", slug, true).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindVariant loads an active variant belonging to the given product.
func (r *Repository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		First(&variant, "id = ? AND product_id = ?", variantID, productID).
		Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// ListCategories returns active categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).
		Error
	return rows, err
}

// FindCategoryBySlug returns the active category with the given slug.
func (r *Repository) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		First(&category, "slug = ? AND is_active = ?", slug, true).
		Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetRatingSummary aggregates approved reviews for a product.
func (r *Repository) GetRatingSummary(ctx context.Context, productID uuid.UUID) (*RatingSummary, error) {
	type aggRow struct {
		Average sql.NullFloat64
		Count   int
	}
	var row aggRow
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("AVG(rating) AS average, COUNT(*) AS count").
		Where("product_id = ? AND is_approved = ?", productID, true).
		Scan(&row).
		Error
	if err != nil {
		return nil, err
	}
	summary := &RatingSummary{Count: row.Count}
	if row.Average.Valid {
		summary.Average = row.Average.Float64
	}
	return summary, nil
}

// CreateReview inserts a review row. The unique (product_id, user_id) index
// surfaces duplicate submissions as a constraint violation.
func (r *Repository) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

// FindReviewByProductUser returns the review a user already left, if any.
func (r *Repository) FindReviewByProductUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		First(&review, "product_id = ? AND user_id = ?", productID, userID).
		Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListReviews returns approved reviews for a product, newest first, cursor
// paginated.
func (r *Repository) ListReviews(ctx context.Context, productID uuid.UUID, page pagination.Params) (*ReviewListResult, error) {
	pageSize := pagination.NormalizeLimit(page.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(page.Limit)

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Where("product_id = ? AND is_approved = ?", productID, true)

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Review
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	reviews := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		reviews = append(reviews, NewReviewDTO(&rows[i]))
	}

	return &ReviewListResult{Reviews: reviews, NextCursor: nextCursor}, nil
}

// ListProductSummaries runs the filtered browse query. The newest sort uses
// keyset pagination; the name and price sorts fall back to page offsets since
// their sort keys are not cursor-stable.
func (r *Repository) ListProductSummaries(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(input.Pagination.Limit)

	primaryImageClause := "(SELECT i.url FROM product_images i WHERE i.product_id = p.id ORDER BY i.is_primary DESC, i.position ASC LIMIT 1)"
	ratingClause := "(SELECT AVG(v.rating) FROM reviews v WHERE v.product_id = p.id AND v.is_approved = TRUE)"
	ratingCountClause := "(SELECT COUNT(*) FROM reviews v WHERE v.product_id = p.id AND v.is_approved = TRUE)"

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join([]string{
			"p.id",
			"p.name",
			"p.slug",
			"p.sku",
			"p.category_id",
			"p.price_cents",
			"p.compare_at_cents",
			"p.stock_quantity",
			"p.is_featured",
			"p.created_at",
			primaryImageClause + " AS primary_image",
			ratingClause + " AS rating_average",
			ratingCountClause + " AS rating_count",
		}, ", ")).
		Where("p.is_active = ?", true)

	filter := input.Filters
	if filter.CategoryID != nil {
		qb = qb.Where("p.category_id = ?", *filter.CategoryID)
	}
	if slug := strings.TrimSpace(filter.CategorySlug); slug != "" && filter.CategoryID == nil {
		qb = qb.Where("p.category_id IN (SELECT c.id FROM categories c WHERE c.slug = ?)", slug)
	}
	if filter.PriceMinCents != nil {
		qb = qb.Where("p.price_cents >= ?", *filter.PriceMinCents)
	}
	if filter.PriceMaxCents != nil {
		qb = qb.Where("p.price_cents <= ?", *filter.PriceMaxCents)
	}
	if filter.Featured != nil {
		qb = qb.Where("p.is_featured = ?", *filter.Featured)
	}
	if filter.InStock != nil {
		if *filter.InStock {
			qb = qb.Where("p.stock_quantity > 0")
		} else {
			qb = qb.Where("p.stock_quantity <= 0")
		}
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(p.name) LIKE ? OR LOWER(p.description) LIKE ? OR LOWER(p.sku) LIKE ?)", pattern, pattern, pattern)
	}

	useCursor := input.Sort == SortNewest || input.Sort == ""
	if useCursor {
		cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
		if err != nil {
			return nil, err
		}
		if cursor != nil {
			qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer)
	} else {
		switch input.Sort {
		case SortName:
			qb = qb.Order("p.name ASC")
		case SortPriceLow:
			qb = qb.Order("p.price_cents ASC")
		case SortPriceHigh:
			qb = qb.Order("p.price_cents DESC")
		}
		qb = qb.Order("p.id ASC").Limit(limitWithBuffer)
		if input.Page > 1 {
			qb = qb.Offset((input.Page - 1) * pageSize)
		}
	}

	var records []productSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > pageSize {
		records = records[:pageSize]
		if useCursor {
			last := records[len(records)-1]
			nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}
	}

	summaries := make([]ProductSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, record.toSummary())
	}

	return &ProductListResult{Products: summaries, NextCursor: nextCursor}, nil
}

type productSummaryRecord struct {
	ID             uuid.UUID
	Name           string
	Slug           string
	SKU            string
	CategoryID     uuid.UUID
	PriceCents     int64
	CompareAtCents sql.NullInt64
	StockQuantity  int
	IsFeatured     bool
	PrimaryImage   sql.NullString
	RatingAverage  sql.NullFloat64
	RatingCount    int
	CreatedAt      time.Time
}

func (r productSummaryRecord) toSummary() ProductSummary {
	s := ProductSummary{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		SKU:         r.SKU,
		CategoryID:  r.CategoryID,
		PriceCents:  r.PriceCents,
		InStock:     r.StockQuantity > 0,
		IsFeatured:  r.IsFeatured,
		RatingCount: r.RatingCount,
		CreatedAt:   r.CreatedAt,
	}
	if r.CompareAtCents.Valid {
		v := r.CompareAtCents.Int64
		s.CompareAtCents = &v
	}
	if r.PrimaryImage.Valid {
		v := r.PrimaryImage.String
		s.PrimaryImage = &v
	}
	if r.RatingAverage.Valid {
		v := r.RatingAverage.Float64
		s.RatingAverage = &v
	}
	return s
}
