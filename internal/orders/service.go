package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/internal/catalog"
	"github.com/outre-records/inventory-core/internal/inventory"
	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockLedger records the stock side of every item command.
type StockLedger interface {
	ApplyMovementTx(ctx context.Context, tx *gorm.DB, input inventory.ApplyMovementInput) (*models.StockMovement, error)
}

// ItemService moves line items out of the active state and edits their quantity.
type ItemService interface {
	CancelItem(ctx context.Context, itemID uuid.UUID) (*OrderItemDTO, error)
	ReturnItem(ctx context.Context, itemID uuid.UUID, reason string) (*OrderItemDTO, error)
	UpdateQuantity(ctx context.Context, itemID uuid.UUID, newQuantity int) (*OrderItemDTO, error)
}

// StatusService drives the order-level state machine.
type StatusService interface {
	SetStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
	ShipOrder(ctx context.Context, orderID uuid.UUID, input ShipOrderInput) (*OrderDTO, error)
	RefundOrder(ctx context.Context, orderID uuid.UUID, reason *string) (*OrderDTO, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (*OrderDTO, error)
	RequestRefund(ctx context.Context, orderID uuid.UUID, reason string) (*OrderDTO, error)
	SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) (*OrderDTO, error)
}

// PlacementService creates orders.
type PlacementService interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
}

// Service is the full order surface used by the API.
type Service interface {
	ItemService
	StatusService
	PlacementService
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*pagination.Page[OrderDTO], error)
}

// ServiceParams carries the order service dependencies.
type ServiceParams struct {
	Repo    Repository
	Catalog catalog.Repository
	Tx      txRunner
	Ledger  StockLedger
	Outbox  outboxPublisher
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	ledger  StockLedger
	outbox  outboxPublisher
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		catalog: params.Catalog,
		tx:      params.Tx,
		ledger:  params.Ledger,
		outbox:  params.Outbox,
		logg:    logg,
		now:     func() time.Time { return now().UTC() },
	}, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order")
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*pagination.Page[OrderDTO], error) {
	params := pagination.Params{Limit: pagination.NormalizeLimit(input.Limit), Cursor: input.Cursor}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListOrders(ctx, params, input.Filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewOrderDTO(row))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

// lockOrder takes the order row lock, mapping a missing row to NotFound.
func lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.LockOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order")
	}
	return order, nil
}

// recomputeTotals rebuilds subtotal and total from the order's active items.
func recomputeTotals(ctx context.Context, repo Repository, order *models.Order) error {
	items, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	subtotal, total := computeTotals(items, order.DiscountAmount, order.ShippingAmount, order.TaxAmount)
	if subtotal.Equal(order.Subtotal) && total.Equal(order.Total) {
		return nil
	}
	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"subtotal": subtotal,
		"total":    total,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
	}
	order.Subtotal = subtotal
	order.Total = total
	return nil
}

// computeTotals sums active lines. The discount never takes the goods amount
// below zero.
func computeTotals(items []models.OrderItem, discount, shipping, tax decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	subtotal := decimal.Zero
	for _, item := range items {
		if item.Status != enums.OrderItemStatusActive {
			continue
		}
		subtotal = subtotal.Add(item.TotalPrice)
	}
	goods := subtotal.Sub(discount)
	if goods.IsNegative() {
		goods = decimal.Zero
	}
	return subtotal.Round(2), goods.Add(shipping).Add(tax).Round(2)
}

func notFoundOr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", entity)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}

func actorPtr(ctx context.Context) *string {
	if id := outbox.ActorID(ctx); id != "" {
		return &id
	}
	return nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
