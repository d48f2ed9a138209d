package checkout

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/internal/cart"
	"github.com/aaronbui99/storefront-backend/internal/orders"
	"github.com/aaronbui99/storefront-backend/pkg/config"
	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
	"github.com/aaronbui99/storefront-backend/pkg/types"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	stmts := []string{`
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  parent_id TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  price_cents INTEGER NOT NULL,
  compare_at_cents INTEGER,
  sku TEXT NOT NULL UNIQUE,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  weight_grams INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  price_adjustment_cents INTEGER NOT NULL DEFAULT 0,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT UNIQUE,
  session_key TEXT UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL DEFAULT 'usd',
  subtotal_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  shipping_address TEXT,
  billing_address TEXT,
  customer_note TEXT NOT NULL DEFAULT '',
  tracking_number TEXT NOT NULL DEFAULT '',
  confirmed_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  product_name TEXT NOT NULL,
  variant_name TEXT NOT NULL DEFAULT '',
  sku TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_status_histories (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS shipping_methods (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  price_cents INTEGER NOT NULL DEFAULT 0,
  estimated_days_min INTEGER NOT NULL DEFAULT 0,
  estimated_days_max INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newCheckoutService(t *testing.T, db *gorm.DB, taxRate string) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(db),
		cart.NewRepository(db),
		orders.NewRepository(db),
		gormTxRunner{db: db},
		config.CheckoutConfig{TaxRate: taxRate, Currency: "usd", OrderNumberAttempts: 5},
	)
	require.NoError(t, err)
	return svc
}

func seedCartWithItem(t *testing.T, db *gorm.DB, userID uuid.UUID, unitPriceCents int64, qty, stock int) (*models.Cart, *models.Product) {
	t.Helper()

	category := &models.Category{ID: uuid.New(), Name: "Widgets", Slug: fmt.Sprintf("w-%s", uuid.NewString()[:8]), IsActive: true}
	require.NoError(t, db.Create(category).Error)

	product := &models.Product{
		ID:            uuid.New(),
		CategoryID:    category.ID,
		Name:          "Widget",
		Slug:          fmt.Sprintf("widget-%s", uuid.NewString()[:8]),
		SKU:           fmt.Sprintf("SKU-%s", uuid.NewString()),
		PriceCents:    unitPriceCents,
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)

	cartRow := &models.Cart{ID: uuid.New(), UserID: &userID}
	require.NoError(t, db.Create(cartRow).Error)

	item := &models.CartItem{
		ID:             uuid.New(),
		CartID:         cartRow.ID,
		ProductID:      product.ID,
		Quantity:       qty,
		UnitPriceCents: unitPriceCents,
	}
	require.NoError(t, db.Create(item).Error)
	return cartRow, product
}

func shippingAddress() types.Address {
	return types.Address{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Line1:      "12 Analytical Way",
		City:       "London",
		State:      "LDN",
		PostalCode: "EC1A",
		Country:    "GB",
	}
}

func TestGenerateOrderNumber_format(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	number, err := GenerateOrderNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^ORD-20260831-[A-Z2-9]{6}$`), number)

	other, err := GenerateOrderNumber(now)
	require.NoError(t, err)
	assert.NotEqual(t, number, other)
}

func TestCheckout_createsPendingOrderAndClearsCart(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, "0.10")
	userID := uuid.New()
	cartRow, product := seedCartWithItem(t, db, userID, 1500, 3, 10)

	method := &models.ShippingMethod{ID: uuid.New(), Name: "Standard", Code: "standard", PriceCents: 500, IsActive: true}
	require.NoError(t, db.Create(method).Error)

	dto, err := svc.Checkout(context.Background(), userID, Input{
		ShippingAddress:    shippingAddress(),
		ShippingMethodCode: "standard",
		CustomerNote:       "leave at door",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending.String(), dto.Status)
	assert.Equal(t, int64(4500), dto.SubtotalCents)
	assert.Equal(t, int64(500), dto.ShippingCents)
	assert.Equal(t, int64(500), dto.TaxCents) // 10% of subtotal+shipping
	assert.Equal(t, int64(5500), dto.TotalCents)
	assert.Regexp(t, `^ORD-\d{8}-[A-Z2-9]{6}$`, dto.Number)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, "Widget", dto.Items[0].ProductName)
	require.Len(t, dto.History, 1)
	assert.Equal(t, enums.OrderStatusPending.String(), dto.History[0].Status)

	// billing falls back to shipping
	assert.Equal(t, dto.ShippingAddress, dto.BillingAddress)

	var itemCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", cartRow.ID).Count(&itemCount).Error)
	assert.Zero(t, itemCount)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 7, reloaded.StockQuantity)
}

func TestCheckout_emptyCartRejected(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, "0")
	userID := uuid.New()

	cartRow := &models.Cart{ID: uuid.New(), UserID: &userID}
	require.NoError(t, db.Create(cartRow).Error)

	_, err := svc.Checkout(context.Background(), userID, Input{ShippingAddress: shippingAddress()})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCheckout_noCartRejected(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, "0")

	_, err := svc.Checkout(context.Background(), uuid.New(), Input{ShippingAddress: shippingAddress()})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCheckout_insufficientStockRollsBack(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, "0")
	userID := uuid.New()
	_, product := seedCartWithItem(t, db, userID, 1000, 5, 2)

	_, err := svc.Checkout(context.Background(), userID, Input{ShippingAddress: shippingAddress()})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	// nothing committed: stock intact, no order rows
	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.StockQuantity)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestCheckout_unknownShippingMethod(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, "0")
	userID := uuid.New()
	seedCartWithItem(t, db, userID, 1000, 1, 5)

	_, err := svc.Checkout(context.Background(), userID, Input{
		ShippingAddress:    shippingAddress(),
		ShippingMethodCode: "teleport",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCheckout_missingShippingAddress(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, "0")

	_, err := svc.Checkout(context.Background(), uuid.New(), Input{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestListShippingMethods_activeOnlyCheapestFirst(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, db, "0")

	require.NoError(t, db.Create(&models.ShippingMethod{ID: uuid.New(), Name: "Express", Code: "express", PriceCents: 1500, IsActive: true}).Error)
	require.NoError(t, db.Create(&models.ShippingMethod{ID: uuid.New(), Name: "Standard", Code: "standard", PriceCents: 500, IsActive: true}).Error)
	require.NoError(t, db.Create(&models.ShippingMethod{ID: uuid.New(), Name: "Retired", Code: "retired", PriceCents: 100, IsActive: false}).Error)

	methods, err := svc.ListShippingMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "standard", methods[0].Code)
	assert.Equal(t, "express", methods[1].Code)
}
