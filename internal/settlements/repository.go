package settlements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

// Repository reads settlement inputs and persists payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	ListSettlementItems(ctx context.Context, supplierID *uuid.UUID, start, end time.Time) ([]models.OrderItem, error)
	CreatePayout(ctx context.Context, payout *models.SupplierPayout) (*models.SupplierPayout, error)
	FindPayout(ctx context.Context, id uuid.UUID) (*models.SupplierPayout, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, reference *string) (bool, error)
	DeletePayout(ctx context.Context, id uuid.UUID) (bool, error)
	ListPayouts(ctx context.Context, params pagination.Params, filters PayoutFilters) ([]models.SupplierPayout, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the settlement repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var rows []models.Supplier
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListSettlementItems returns active items created in [start, end] whose order
// was neither cancelled nor refunded. A nil supplierID returns every supplier's items.
func (r *repository) ListSettlementItems(ctx context.Context, supplierID *uuid.UUID, start, end time.Time) ([]models.OrderItem, error) {
	q := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("order_items.*").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.status = ?", enums.OrderItemStatusActive).
		Where("orders.status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCancelled, enums.OrderStatusRefunded}).
		Where("order_items.created_at >= ? AND order_items.created_at <= ?", start.UTC(), end.UTC())
	if supplierID != nil {
		q = q.Where("order_items.supplier_id = ?", *supplierID)
	} else {
		q = q.Where("order_items.supplier_id IS NOT NULL")
	}

	var rows []models.OrderItem
	if err := q.Order("order_items.created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreatePayout(ctx context.Context, payout *models.SupplierPayout) (*models.SupplierPayout, error) {
	if err := r.db.WithContext(ctx).Create(payout).Error; err != nil {
		return nil, err
	}
	return payout, nil
}

func (r *repository) FindPayout(ctx context.Context, id uuid.UUID) (*models.SupplierPayout, error) {
	var payout models.SupplierPayout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

// MarkPaid flips a pending payout to paid. It reports false when the payout is
// no longer pending.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, reference *string) (bool, error) {
	updates := map[string]any{
		"status":  enums.PayoutStatusPaid,
		"paid_at": paidAt,
	}
	if reference != nil {
		updates["payment_reference"] = *reference
	}
	res := r.db.WithContext(ctx).
		Model(&models.SupplierPayout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) DeletePayout(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SupplierPayout{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListPayouts returns payouts newest first with one look-ahead row.
func (r *repository) ListPayouts(ctx context.Context, params pagination.Params, filters PayoutFilters) ([]models.SupplierPayout, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Model(&models.SupplierPayout{})
	if filters.SupplierID != nil {
		q = q.Where("supplier_id = ?", *filters.SupplierID)
	}
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.SupplierPayout
	err = q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}
