package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aaronbui99/storefront-backend/internal/repo"
	"github.com/aaronbui99/storefront-backend/pkg/db/models"
	"github.com/aaronbui99/storefront-backend/pkg/enums"
	"github.com/aaronbui99/storefront-backend/pkg/pagination"
)

// OrderListFilters narrow the customer order listing.
type OrderListFilters struct {
	Status *enums.OrderStatus
}

// Repository wires together order persistence helpers.
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

// Create inserts the order together with its items and seed history rows via
// GORM association writes.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads the order with items and history preloaded.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUser is FindByID scoped to the owning user.
func (r *Repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&order, "id = ? AND user_id = ?", id, userID).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByNumber loads the order by its public number scoped to the user.
func (r *Repository) FindByNumber(ctx context.Context, number string, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&order, "number = ? AND user_id = ?", number, userID).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockForUpdate reloads the order row under FOR UPDATE inside the supplied
// transaction.
func (r *Repository) LockForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := repo.LockForUpdate(r.db.WithContext(ctx)).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// NumberExists reports whether an order number is already taken.
func (r *Repository) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("number = ?", number).
		Count(&count).
		Error
	return count > 0, err
}

// UpdateStatus writes the new status plus any lifecycle timestamps.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	updates := map[string]any{"status": status}
	now := time.Now().UTC()
	switch status {
	case enums.OrderStatusConfirmed:
		updates["confirmed_at"] = now
	case enums.OrderStatusShipped:
		updates["shipped_at"] = now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

// SetTrackingNumber records the carrier reference on a shipped order.
func (r *Repository) SetTrackingNumber(ctx context.Context, id uuid.UUID, trackingNumber string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("tracking_number", trackingNumber).
		Error
}

// AppendHistory writes one audit row for the transition.
func (r *Repository) AppendHistory(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, note string) error {
	return r.db.WithContext(ctx).Create(&models.OrderStatusHistory{
		OrderID:    orderID,
		FromStatus: from,
		Status:     to,
		Note:       note,
	}).Error
}

// ListByUser pages through a user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params, filters OrderListFilters) (*OrderListResult, error) {
	pageSize := pagination.NormalizeLimit(page.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(page.Limit)

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("orders o").
		Select("o.id, o.number, o.status, o.total_cents, o.created_at, " +
			"(SELECT COALESCE(SUM(i.quantity), 0) FROM order_items i WHERE i.order_id = o.id) AS item_count").
		Where("o.user_id = ?", userID)

	if filters.Status != nil {
		qb = qb.Where("o.status = ?", *filters.Status)
	}
	if cursor != nil {
		qb = qb.Where("(o.created_at < ?) OR (o.created_at = ? AND o.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []orderSummaryRecord
	if err := qb.Order("o.created_at DESC").Order("o.id DESC").Limit(limitWithBuffer).Scan(&records).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > pageSize {
		records = records[:pageSize]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	orders := make([]OrderSummary, 0, len(records))
	for _, record := range records {
		orders = append(orders, OrderSummary{
			ID:         record.ID,
			Number:     record.Number,
			Status:     record.Status,
			TotalCents: record.TotalCents,
			ItemCount:  record.ItemCount,
			CreatedAt:  record.CreatedAt,
		})
	}
	return &OrderListResult{Orders: orders, NextCursor: nextCursor}, nil
}

type orderSummaryRecord struct {
	ID         uuid.UUID
	Number     string
	Status     enums.OrderStatus
	TotalCents int64
	ItemCount  int
	CreatedAt  time.Time
}
