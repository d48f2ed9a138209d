package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
	"github.com/aaronbui99/storefront-backend/pkg/pagination"
)

// Service exposes the public catalog read surface plus review submission.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, slugOrID string) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	GetCategory(ctx context.Context, slug string) (*CategoryDTO, error)
	ListReviews(ctx context.Context, productID uuid.UUID, page pagination.Params) (*ReviewListResult, error)
	CreateReview(ctx context.Context, userID, productID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
}

// CreateReviewInput holds the validated payload to submit a review.
type CreateReviewInput struct {
	Rating int
	Title  string
	Body   string
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// ListProducts validates the filter ranges and runs the browse query.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	filter := input.Filters
	if filter.PriceMinCents != nil && *filter.PriceMinCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_min cannot be negative")
	}
	if filter.PriceMaxCents != nil && *filter.PriceMaxCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_max cannot be negative")
	}
	if filter.PriceMinCents != nil && filter.PriceMaxCents != nil && *filter.PriceMinCents > *filter.PriceMaxCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_min cannot exceed price_max")
	}

	result, err := s.repo.ListProductSummaries(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

// GetProduct resolves a product by slug, accepting a raw UUID as well so
// stored links keep working after a slug change.
func (s *service) GetProduct(ctx context.Context, slugOrID string) (*ProductDTO, error) {
	key := strings.TrimSpace(slugOrID)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product identifier required")
	}

	var (
		product *models.Product
		err     error
	)
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		product, err = s.repo.GetProductDetail(ctx, id)
	} else {
		product, err = s.repo.GetProductDetailBySlug(ctx, key)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	rating, err := s.repo.GetRatingSummary(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product rating")
	}
	return NewProductDTO(product, rating), nil
}

// ListCategories returns the active categories, name-ordered.
func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewCategoryDTO(&rows[i]))
	}
	return out, nil
}

// GetCategory resolves a single active category by slug.
func (s *service) GetCategory(ctx context.Context, slug string) (*CategoryDTO, error) {
	category, err := s.repo.FindCategoryBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	dto := NewCategoryDTO(category)
	return &dto, nil
}

// ListReviews pages through approved reviews for the product.
func (s *service) ListReviews(ctx context.Context, productID uuid.UUID, page pagination.Params) (*ReviewListResult, error) {
	if err := s.ensureActiveProduct(ctx, productID); err != nil {
		return nil, err
	}
	result, err := s.repo.ListReviews(ctx, productID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return result, nil
}

// CreateReview validates and stores a review, rejecting duplicates per user.
func (s *service) CreateReview(ctx context.Context, userID, productID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	if err := s.ensureActiveProduct(ctx, productID); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindReviewByProductUser(ctx, productID, userID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "review already submitted for this product")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
	}

	review, err := s.repo.CreateReview(ctx, &models.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    input.Rating,
		Title:     strings.TrimSpace(input.Title),
		Body:      strings.TrimSpace(input.Body),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert review")
	}

	dto := NewReviewDTO(review)
	return &dto, nil
}

func (s *service) ensureActiveProduct(ctx context.Context, productID uuid.UUID) error {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}
