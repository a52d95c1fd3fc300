package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

// Repository persists products' stock counters and their movement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	CompareAndSwapStock(ctx context.Context, productID uuid.UUID, before, after int) (bool, error)
	LatestMovementAt(ctx context.Context, productID uuid.UUID) (*time.Time, error)
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.StockMovement, error)
	ListMovementsForReplay(ctx context.Context, productID uuid.UUID) ([]models.StockMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockProduct reads the product row with SELECT ... FOR UPDATE. Dialects without
// row locks (sqlite) ignore the clause and rely on their single writer.
func (r *repository) LockProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// CompareAndSwapStock writes after only while the stored stock still equals before.
func (r *repository) CompareAndSwapStock(ctx context.Context, productID uuid.UUID, before, after int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock = ?", productID, before).
		Update("stock", after)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) LatestMovementAt(ctx context.Context, productID uuid.UUID) (*time.Time, error) {
	var rows []models.StockMovement
	err := r.db.WithContext(ctx).
		Select("id", "created_at").
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0].CreatedAt, nil
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// ListMovements returns a product's ledger newest first with one look-ahead row.
func (r *repository) ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.StockMovement, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	q := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.StockMovement
	err = q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// ListMovementsForReplay returns the full ledger oldest first.
func (r *repository) ListMovementsForReplay(ctx context.Context, productID uuid.UUID) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
