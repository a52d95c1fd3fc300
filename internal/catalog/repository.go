package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

// Repository exposes product and supplier persistence. Stock is never written here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSupplier(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error)
	FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	UpdateProductDetails(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) ([]models.Product, error)
	ListLowStock(ctx context.Context, limit int) ([]models.Product, error)
	ListProductIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSupplier(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error) {
	if err := r.db.WithContext(ctx).Create(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func (r *repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repository) UpdateProductDetails(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListProducts returns products ordered by created_at DESC, id DESC, fetching one
// extra row so callers can detect a following page.
func (r *repository) ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) ([]models.Product, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Model(&models.Product{})
	if filters.SupplierID != nil {
		q = q.Where("supplier_id = ?", *filters.SupplierID)
	}
	if filters.LowStockOnly {
		q = q.Where("stock <= stock_threshold")
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		q = q.Where("(LOWER(title) LIKE LOWER(?) OR LOWER(sku) LIKE LOWER(?) OR LOWER(artist) LIKE LOWER(?))", like, like, like)
	}
	if cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	err = q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListLowStock(ctx context.Context, limit int) ([]models.Product, error) {
	var rows []models.Product
	q := r.db.WithContext(ctx).
		Where("stock <= stock_threshold").
		Order("stock ASC").Order("sku ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListProductIDsAfter pages through every product id in ascending order.
func (r *repository) ListProductIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	q := r.db.WithContext(ctx).Model(&models.Product{}).Order("id ASC")
	if after != uuid.Nil {
		q = q.Where("id > ?", after)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
