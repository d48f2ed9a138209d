package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
	"github.com/aaronbui99/storefront-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
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
);`
	items := `
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
);`
	history := `
CREATE TABLE IF NOT EXISTS order_status_histories (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(items).Error)
	require.NoError(t, db.Exec(history).Error)
	return db
}

func mustCreateOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, number string, status enums.OrderStatus, created time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		Number:        number,
		UserID:        userID,
		Status:        status,
		SubtotalCents: 2000,
		TotalCents:    2000,
		Items: []models.OrderItem{{
			ProductID:      uuid.New(),
			ProductName:    "Widget",
			SKU:            "SKU-1",
			Quantity:       2,
			UnitPriceCents: 1000,
			TotalCents:     2000,
		}},
		History: []models.OrderStatusHistory{{
			Status: enums.OrderStatusPending,
			Note:   "order placed",
		}},
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	created := mustCreateOrder(t, db, userID, "ORD-20260831-ABC123", enums.OrderStatusPending, time.Now().UTC())

	got, err := repo.FindByIDForUser(context.Background(), created.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, created.Number, got.Number)
	require.Len(t, got.Items, 1)
	require.Len(t, got.History, 1)
	assert.Equal(t, enums.OrderStatusPending, got.History[0].Status)

	byNumber, err := repo.FindByNumber(context.Background(), created.Number, userID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNumber.ID)

	_, err = repo.FindByIDForUser(context.Background(), created.ID, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryNumberExists(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	mustCreateOrder(t, db, uuid.New(), "ORD-20260831-TAKEN1", enums.OrderStatusPending, time.Now().UTC())

	exists, err := repo.NumberExists(context.Background(), "ORD-20260831-TAKEN1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.NumberExists(context.Background(), "ORD-20260831-FREE01")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryListByUser_paginationAndFilter(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	now := time.Now().UTC()
	mustCreateOrder(t, db, userID, "ORD-1", enums.OrderStatusPending, now.Add(-time.Hour))
	mustCreateOrder(t, db, userID, "ORD-2", enums.OrderStatusConfirmed, now)
	mustCreateOrder(t, db, uuid.New(), "ORD-3", enums.OrderStatusPending, now)

	list, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 1}, OrderListFilters{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, "ORD-2", list.Orders[0].Number)
	assert.Equal(t, 2, list.Orders[0].ItemCount)
	require.NotEmpty(t, list.NextCursor)

	page2, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 1, Cursor: list.NextCursor}, OrderListFilters{})
	require.NoError(t, err)
	require.Len(t, page2.Orders, 1)
	assert.Equal(t, "ORD-1", page2.Orders[0].Number)
	assert.Empty(t, page2.NextCursor)

	confirmed := enums.OrderStatusConfirmed
	filtered, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 10}, OrderListFilters{Status: &confirmed})
	require.NoError(t, err)
	require.Len(t, filtered.Orders, 1)
	assert.Equal(t, "ORD-2", filtered.Orders[0].Number)
}
