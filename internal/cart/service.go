package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
)

// Owner identifies who a cart belongs to: an authenticated user or an
// anonymous session key, never both.
type Owner struct {
	UserID     *uuid.UUID
	SessionKey string
}

func (o Owner) validate() error {
	hasUser := o.UserID != nil && *o.UserID != uuid.Nil
	hasSession := strings.TrimSpace(o.SessionKey) != ""
	if hasUser == hasSession {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user or session key must identify the cart")
	}
	return nil
}

// AddItemInput holds the validated payload to add a cart line.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// Service exposes cart operations keyed by owner.
type Service interface {
	Get(ctx context.Context, owner Owner) (*CartDTO, error)
	AddItem(ctx context.Context, owner Owner, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, owner Owner, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, owner Owner) (*CartDTO, error)
}

type productReader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error)
}

type service struct {
	repo    *Repository
	catalog productReader
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, catalog productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &service{repo: repo, catalog: catalog}, nil
}

// Get returns the owner's cart, creating an empty one on first access.
func (s *service) Get(ctx context.Context, owner Owner) (*CartDTO, error) {
	cart, err := s.resolve(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, cart.ID)
}

// AddItem appends a line or increments the existing line for the same
// product/variant pair, capturing the current unit price on insert.
func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) (*CartDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.catalog.FindProductByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	unitPrice := product.PriceCents
	stock := product.StockQuantity
	var variant *models.ProductVariant
	if input.VariantID != nil {
		variant, err = s.catalog.FindVariant(ctx, input.ProductID, *input.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		if !variant.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		unitPrice += variant.PriceAdjustmentCents
		stock = variant.StockQuantity
	}

	cart, err := s.resolve(ctx, owner)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, input.ProductID, input.VariantID)
	switch {
	case err == nil:
		newQty := existing.Quantity + input.Quantity
		if newQty > stock {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").
				WithDetails(map[string]int{"available": stock, "requested": newQty})
		}
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, newQty); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if input.Quantity > stock {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").
				WithDetails(map[string]int{"available": stock, "requested": input.Quantity})
		}
		_, err = s.repo.CreateItem(ctx, &models.CartItem{
			CartID:         cart.ID,
			ProductID:      input.ProductID,
			VariantID:      input.VariantID,
			Quantity:       input.Quantity,
			UnitPriceCents: unitPrice,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find cart item")
	}

	if err := s.repo.TouchCart(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
	}
	return s.load(ctx, cart.ID)
}

// UpdateItem sets a line's quantity; zero or less removes the line.
func (s *service) UpdateItem(ctx context.Context, owner Owner, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	cart, err := s.resolve(ctx, owner)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItemByID(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if quantity <= 0 {
		if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
	} else {
		if err := s.ensureStock(ctx, item, quantity); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
	}

	if err := s.repo.TouchCart(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
	}
	return s.load(ctx, cart.ID)
}

// RemoveItem deletes a line. Removing an already absent line is a no-op.
func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) (*CartDTO, error) {
	cart, err := s.resolve(ctx, owner)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItemByID(ctx, cart.ID, itemID)
	switch {
	case err == nil:
		if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		if err := s.repo.TouchCart(ctx, cart.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// already gone
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	return s.load(ctx, cart.ID)
}

// Clear removes every line from the owner's cart.
func (s *service) Clear(ctx context.Context, owner Owner) (*CartDTO, error) {
	cart, err := s.resolve(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	if err := s.repo.TouchCart(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
	}
	return s.load(ctx, cart.ID)
}

func (s *service) resolve(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}

	var (
		cart *models.Cart
		err  error
	)
	if owner.UserID != nil && *owner.UserID != uuid.Nil {
		cart, err = s.repo.FindByUserID(ctx, *owner.UserID)
	} else {
		cart, err = s.repo.FindBySessionKey(ctx, owner.SessionKey)
	}
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	fresh := &models.Cart{}
	if owner.UserID != nil && *owner.UserID != uuid.Nil {
		fresh.UserID = owner.UserID
	} else {
		key := strings.TrimSpace(owner.SessionKey)
		fresh.SessionKey = &key
	}
	created, err := s.repo.Create(ctx, fresh)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

func (s *service) load(ctx context.Context, cartID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.GetWithItems(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	return NewCartDTO(cart), nil
}

func (s *service) ensureStock(ctx context.Context, item *models.CartItem, quantity int) error {
	if item.VariantID != nil {
		variant, err := s.catalog.FindVariant(ctx, item.ProductID, *item.VariantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		if quantity > variant.StockQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").
				WithDetails(map[string]int{"available": variant.StockQuantity, "requested": quantity})
		}
		return nil
	}

	product, err := s.catalog.FindProductByID(ctx, item.ProductID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if quantity > product.StockQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").
			WithDetails(map[string]int{"available": product.StockQuantity, "requested": quantity})
	}
	return nil
}
