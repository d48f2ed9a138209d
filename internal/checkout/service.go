package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/internal/cart"
	"github.com/aaronbui99/storefront-backend/internal/orders"
	"github.com/aaronbui99/storefront-backend/pkg/config"
	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
	"github.com/aaronbui99/storefront-backend/pkg/types"
)

// Input is the validated checkout payload. Monetary amounts are never taken
// from the client; everything is recomputed from the locked cart.
type Input struct {
	ShippingAddress    types.Address
	BillingAddress     types.Address
	ShippingMethodCode string
	CustomerNote       string
}

// Service turns a cart into a pending order inside one transaction.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, input Input) (*orders.OrderDTO, error)
	ListShippingMethods(ctx context.Context) ([]ShippingMethodDTO, error)
}

// ShippingMethodDTO is a selectable delivery option.
type ShippingMethodDTO struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	PriceCents       int64  `json:"price_cents"`
	EstimatedDaysMin int    `json:"estimated_days_min"`
	EstimatedDaysMax int    `json:"estimated_days_max"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo       *Repository
	cartRepo   *cart.Repository
	ordersRepo *orders.Repository
	tx         txRunner
	cfg        config.CheckoutConfig
	taxRate    decimal.Decimal
}

// NewService constructs a checkout service instance.
func NewService(
	repo *Repository,
	cartRepo *cart.Repository,
	ordersRepo *orders.Repository,
	tx txRunner,
	cfg config.CheckoutConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	taxRate, err := decimal.NewFromString(strings.TrimSpace(cfg.TaxRate))
	if err != nil {
		return nil, fmt.Errorf("parsing tax rate %q: %w", cfg.TaxRate, err)
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate cannot be negative")
	}
	return &service{
		repo:       repo,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		tx:         tx,
		cfg:        cfg,
		taxRate:    taxRate,
	}, nil
}

// ListShippingMethods returns the active delivery options.
func (s *service) ListShippingMethods(ctx context.Context) ([]ShippingMethodDTO, error) {
	rows, err := s.repo.ListShippingMethods(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping methods")
	}
	out := make([]ShippingMethodDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, ShippingMethodDTO{
			Code:             m.Code,
			Name:             m.Name,
			PriceCents:       m.PriceCents,
			EstimatedDaysMin: m.EstimatedDaysMin,
			EstimatedDaysMax: m.EstimatedDaysMax,
		})
	}
	return out, nil
}

// Checkout locks the user's cart, recomputes totals server-side, decrements
// stock, creates the order with its seed history row, and clears the cart,
// all inside a single transaction.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input Input) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required for checkout")
	}
	if input.ShippingAddress.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	billing := input.BillingAddress
	if billing.IsZero() {
		billing = input.ShippingAddress
	}

	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		checkoutRepo := s.repo.WithTx(tx)

		cartRow, err := cartRepo.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		// serialize concurrent checkouts of the same cart
		if _, err := cartRepo.LockForUpdate(ctx, cartRow.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}

		loaded, err := cartRepo.GetWithItems(ctx, cartRow.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
		}
		if len(loaded.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		var shippingCents int64
		if code := strings.TrimSpace(input.ShippingMethodCode); code != "" {
			method, err := checkoutRepo.FindShippingMethod(ctx, code)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping method")
			}
			shippingCents = method.PriceCents
		}

		orderItems := make([]models.OrderItem, 0, len(loaded.Items))
		var subtotal int64
		for i := range loaded.Items {
			item := &loaded.Items[i]
			if item.Product == nil || !item.Product.IsActive {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					"a cart item is no longer available").
					WithDetails(map[string]string{"cart_item_id": item.ID.String()})
			}

			if item.VariantID != nil {
				affected, err := checkoutRepo.DecrementVariantStock(ctx, *item.VariantID, item.Quantity)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement variant stock")
				}
				if affected == 0 {
					return insufficientStock(item)
				}
			} else {
				affected, err := checkoutRepo.DecrementProductStock(ctx, item.ProductID, item.Quantity)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement product stock")
				}
				if affected == 0 {
					return insufficientStock(item)
				}
			}

			lineTotal := item.LineTotalCents()
			subtotal += lineTotal

			orderItem := models.OrderItem{
				ProductID:      item.ProductID,
				VariantID:      item.VariantID,
				ProductName:    item.Product.Name,
				SKU:            item.Product.SKU,
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
				TotalCents:     lineTotal,
			}
			if item.Variant != nil {
				orderItem.VariantName = item.Variant.Name
				orderItem.SKU = item.Variant.SKU
			}
			orderItems = append(orderItems, orderItem)
		}

		taxCents := s.taxRate.
			Mul(decimal.NewFromInt(subtotal + shippingCents)).
			Round(0).
			IntPart()
		totalCents := subtotal + taxCents + shippingCents

		number, err := s.allocateNumber(ctx, ordersRepo)
		if err != nil {
			return err
		}

		order := &models.Order{
			Number:          number,
			UserID:          userID,
			Status:          enums.OrderStatusPending,
			Currency:        s.currency(),
			SubtotalCents:   subtotal,
			TaxCents:        taxCents,
			ShippingCents:   shippingCents,
			TotalCents:      totalCents,
			ShippingAddress: input.ShippingAddress,
			BillingAddress:  billing,
			CustomerNote:    strings.TrimSpace(input.CustomerNote),
			Items:           orderItems,
			History: []models.OrderStatusHistory{{
				Status: enums.OrderStatusPending,
				Note:   "order placed",
			}},
		}
		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		orderID = order.ID

		if err := cartRepo.ClearItems(ctx, cartRow.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return orders.NewOrderDTO(created), nil
}

func (s *service) allocateNumber(ctx context.Context, ordersRepo *orders.Repository) (string, error) {
	attempts := s.cfg.OrderNumberAttempts
	if attempts <= 0 {
		attempts = 5
	}
	for i := 0; i < attempts; i++ {
		number, err := GenerateOrderNumber(time.Now())
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		taken, err := ordersRepo.NumberExists(ctx, number)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
		}
		if !taken {
			return number, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order number")
}

func (s *service) currency() string {
	if c := strings.TrimSpace(strings.ToLower(s.cfg.Currency)); c != "" {
		return c
	}
	return "usd"
}

func insufficientStock(item *models.CartItem) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
		WithDetails(map[string]any{
			"product_id": item.ProductID.String(),
			"requested":  item.Quantity,
		})
}
