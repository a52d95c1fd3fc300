package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockOrder reads the order header with SELECT ... FOR UPDATE. Every item and
// status command takes this lock first so commands on one order run one at a time.
func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountActiveItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND status = ?", orderID, enums.OrderItemStatusActive).
		Count(&count).Error
	return count, err
}

// TransitionItem applies updates only while the item is still in status from.
func (r *repository) TransitionItem(ctx context.Context, itemID uuid.UUID, from enums.OrderItemStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND status = ?", itemID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateItemQuantity rewrites quantity and total while the item is active and
// still holds current.
func (r *repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, current, next int, total decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND status = ? AND quantity = ?", itemID, enums.OrderItemStatusActive, current).
		Updates(map[string]any{
			"quantity":    next,
			"total_price": total,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) LinkItemMovement(ctx context.Context, itemID uuid.UUID, column string, movementID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update(column, movementID).Error
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CancelOpenOrder moves the order to cancelled unless it already reached a
// terminal status. It reports whether this call made the change.
func (r *repository) CancelOpenOrder(ctx context.Context, orderID uuid.UUID, cancelledAt time.Time, reason *string) (bool, error) {
	updates := map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": cancelledAt,
	}
	if reason != nil {
		updates["cancellation_reason"] = *reason
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", orderID, enums.TerminalOrderStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListOrders returns orders newest first with one look-ahead row.
func (r *repository) ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.RefundRequested != nil {
		q = q.Where("refund_requested = ?", *filters.RefundRequested)
	}
	if filters.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *filters.CreatedFrom)
	}
	if filters.CreatedTo != nil {
		q = q.Where("created_at <= ?", *filters.CreatedTo)
	}
	if cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}
