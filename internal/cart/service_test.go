package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/internal/catalog"
	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	pkgerrors "github.com/aaronbui99/storefront-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	categories := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  parent_id TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
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
);`
	variants := `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  price_adjustment_cents INTEGER NOT NULL DEFAULT 0,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (product_id, sku)
);`
	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT UNIQUE,
  session_key TEXT UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id, variant_id)
);`
	require.NoError(t, db.Exec(categories).Error)
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(variants).Error)
	require.NoError(t, db.Exec(carts).Error)
	require.NoError(t, db.Exec(cartItems).Error)
	return db
}

func newCartService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupCartTestDB(t)
	svc, err := NewService(NewRepository(db), catalog.NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func seedProduct(t *testing.T, db *gorm.DB, priceCents int64, stock int) *models.Product {
	t.Helper()
	category := &models.Category{
		ID:       uuid.New(),
		Name:     "Widgets",
		Slug:     fmt.Sprintf("widgets-%s", uuid.NewString()[:8]),
		IsActive: true,
	}
	require.NoError(t, db.Create(category).Error)

	product := &models.Product{
		ID:            uuid.New(),
		CategoryID:    category.ID,
		Name:          "Widget",
		Slug:          fmt.Sprintf("widget-%s", uuid.NewString()[:8]),
		SKU:           fmt.Sprintf("SKU-%s", uuid.NewString()),
		PriceCents:    priceCents,
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func seedVariant(t *testing.T, db *gorm.DB, productID uuid.UUID, adjustmentCents int64, stock int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ID:                   uuid.New(),
		ProductID:            productID,
		Name:                 "Large",
		SKU:                  fmt.Sprintf("VAR-%s", uuid.NewString()),
		PriceAdjustmentCents: adjustmentCents,
		StockQuantity:        stock,
		IsActive:             true,
	}
	require.NoError(t, db.Create(variant).Error)
	return variant
}

func userOwner() Owner {
	id := uuid.New()
	return Owner{UserID: &id}
}

func TestGet_createsCartOnFirstAccess(t *testing.T) {
	svc, _ := newCartService(t)

	dto, err := svc.Get(context.Background(), Owner{SessionKey: "sess-abc"})
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
	assert.Zero(t, dto.SubtotalCents)

	again, err := svc.Get(context.Background(), Owner{SessionKey: "sess-abc"})
	require.NoError(t, err)
	assert.Equal(t, dto.ID, again.ID)
}

func TestOwner_requiresExactlyOneIdentity(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.Get(context.Background(), Owner{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	id := uuid.New()
	_, err = svc.Get(context.Background(), Owner{UserID: &id, SessionKey: "sess"})
	require.Error(t, err)
}

func TestAddItem_capturesPriceAndIncrements(t *testing.T) {
	svc, db := newCartService(t)
	product := seedProduct(t, db, 1500, 10)
	owner := userOwner()

	dto, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, int64(1500), dto.Items[0].UnitPriceCents)
	assert.Equal(t, int64(3000), dto.SubtotalCents)

	// a later catalog price change must not reprice the open line
	require.NoError(t, db.Model(product).Update("price_cents", 9999).Error)

	dto, err = svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 3, dto.Items[0].Quantity)
	assert.Equal(t, int64(1500), dto.Items[0].UnitPriceCents)
	assert.Equal(t, int64(4500), dto.SubtotalCents)
}

func TestAddItem_variantAdjustsPriceAndIsSeparateLine(t *testing.T) {
	svc, db := newCartService(t)
	product := seedProduct(t, db, 1000, 10)
	variant := seedVariant(t, db, product.ID, 250, 10)
	owner := userOwner()

	dto, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)

	dto, err = svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, VariantID: &variant.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, dto.Items, 2)
	assert.Equal(t, int64(2250), dto.SubtotalCents)
}

func TestAddItem_insufficientStock(t *testing.T) {
	svc, db := newCartService(t)
	product := seedProduct(t, db, 1000, 2)
	owner := userOwner()

	_, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 3})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestAddItem_unknownProduct(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.AddItem(context.Background(), userOwner(), AddItemInput{ProductID: uuid.New(), Quantity: 1})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateItem_zeroQuantityRemovesLine(t *testing.T) {
	svc, db := newCartService(t)
	product := seedProduct(t, db, 1000, 10)
	owner := userOwner()

	dto, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	itemID := dto.Items[0].ID

	dto, err = svc.UpdateItem(context.Background(), owner, itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
}

func TestUpdateItem_setsQuantity(t *testing.T) {
	svc, db := newCartService(t)
	product := seedProduct(t, db, 1000, 10)
	owner := userOwner()

	dto, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	dto, err = svc.UpdateItem(context.Background(), owner, dto.Items[0].ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, dto.Items[0].Quantity)
	assert.Equal(t, int64(5000), dto.SubtotalCents)
}

func TestRemoveItem_absentIsNoOp(t *testing.T) {
	svc, _ := newCartService(t)
	owner := userOwner()

	dto, err := svc.RemoveItem(context.Background(), owner, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
}

func TestClear(t *testing.T) {
	svc, db := newCartService(t)
	product := seedProduct(t, db, 1000, 10)
	owner := userOwner()

	_, err := svc.AddItem(context.Background(), owner, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	dto, err := svc.Clear(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
	assert.Zero(t, dto.ItemCount)
}
