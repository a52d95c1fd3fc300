package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	CountActiveItems(ctx context.Context, orderID uuid.UUID) (int64, error)
	TransitionItem(ctx context.Context, itemID uuid.UUID, from enums.OrderItemStatus, updates map[string]any) (bool, error)
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, current, next int, total decimal.Decimal) (bool, error)
	LinkItemMovement(ctx context.Context, itemID uuid.UUID, column string, movementID uuid.UUID) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	CancelOpenOrder(ctx context.Context, orderID uuid.UUID, cancelledAt time.Time, reason *string) (bool, error)
	ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) ([]models.Order, error)
}
