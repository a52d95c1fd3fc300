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

	"github.com/outre-records/inventory-core/internal/inventory"
	"github.com/outre-records/inventory-core/pkg/db"
	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/outbox/payloads"
)

const defaultCurrency = "EUR"

// PlaceOrder creates a pending order, snapshots each product's supplier terms
// onto its item and books one sale movement per item.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error) {
	if err := validatePlacement(input); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	number := strings.TrimSpace(input.OrderNumber)
	if number == "" {
		number = generateOrderNumber(s.now())
	}

	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products, err := s.catalog.WithTx(tx).FindProducts(ctx, productIDs(input.Items))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		for _, line := range input.Items {
			if _, ok := products[line.ProductID]; !ok {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", line.ProductID)
			}
		}
		terms, err := s.supplierTerms(ctx, tx, products)
		if err != nil {
			return err
		}

		order, err := repo.CreateOrder(ctx, &models.Order{
			OrderNumber:    number,
			CustomerEmail:  trimmedPtr(input.CustomerEmail),
			Status:         enums.OrderStatusPending,
			PaymentStatus:  enums.PaymentStatusPending,
			Currency:       currency,
			DiscountAmount: input.DiscountAmount.Round(2),
			ShippingAmount: input.ShippingAmount.Round(2),
			TaxAmount:      input.TaxAmount.Round(2),
			Notes:          trimmedPtr(input.Notes),
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "order number %q already exists", number)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}
		orderID = order.ID

		reason := "order placed"
		items := make([]models.OrderItem, 0, len(input.Items))
		for _, line := range input.Items {
			product := products[line.ProductID]
			supplierType, rate := terms.forProduct(product)
			unitPrice := line.UnitPrice.Round(2)
			item, err := repo.CreateItem(ctx, &models.OrderItem{
				OrderID:         order.ID,
				ProductID:       product.ID,
				Quantity:        line.Quantity,
				UnitPrice:       unitPrice,
				TotalPrice:      models.LineTotal(line.Quantity, unitPrice),
				Status:          enums.OrderItemStatusActive,
				SupplierID:      product.SupplierID,
				SupplierType:    supplierType,
				ConsignmentRate: rate,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order item")
			}

			movement, err := s.ledger.ApplyMovementTx(ctx, tx, inventory.ApplyMovementInput{
				ProductID:  product.ID,
				Type:       enums.MovementSale,
				Quantity:   line.Quantity,
				OrderID:    &order.ID,
				SupplierID: product.SupplierID,
				UnitCost:   decimal.NewNullDecimal(product.CostPrice),
				Reason:     &reason,
				Reference:  &order.OrderNumber,
				CreatedBy:  actorPtr(ctx),
			})
			if err != nil {
				return err
			}
			if err := repo.LinkItemMovement(ctx, item.ID, "stock_movement_id", movement.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link sale movement")
			}
			item.StockMovementID = &movement.ID
			items = append(items, *item)
		}

		if err := recomputeTotals(ctx, repo, order); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				ItemCount:   len(items),
				Total:       order.Total,
				Currency:    order.Currency,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"order_number": order.OrderNumber,
			"item_count":   len(items),
		})
		s.logg.Info(logCtx, "order placed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

func validatePlacement(input PlaceOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for i, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].product_id is required", i)
		}
		if line.Quantity <= 0 {
			return pkgerrors.Newf(pkgerrors.CodeInvalidQuantity, "items[%d].quantity must be greater than zero", i)
		}
		if line.UnitPrice.IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].unit_price must be >= 0", i)
		}
	}
	if input.DiscountAmount.IsNegative() || input.ShippingAmount.IsNegative() || input.TaxAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amounts must be >= 0")
	}
	return nil
}

func productIDs(lines []PlaceOrderItemInput) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

// generateOrderNumber builds ORD-YYYYMMDD-XXXXXXXX from the placement date and a
// random suffix.
func generateOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), suffix)
}

type saleTerms map[uuid.UUID]models.Supplier

// supplierTerms loads the suppliers behind the ordered products so their type
// and commission rate can be frozen onto each item.
func (s *service) supplierTerms(ctx context.Context, tx *gorm.DB, products map[uuid.UUID]models.Product) (saleTerms, error) {
	repo := s.catalog.WithTx(tx)
	out := saleTerms{}
	for _, product := range products {
		if product.SupplierID == nil {
			continue
		}
		if _, ok := out[*product.SupplierID]; ok {
			continue
		}
		supplier, err := repo.FindSupplier(ctx, *product.SupplierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
		}
		out[supplier.ID] = *supplier
	}
	return out, nil
}

// forProduct returns the supplier type and commission rate in force for a
// product right now: the product's own rate wins over the supplier's.
func (t saleTerms) forProduct(product models.Product) (*enums.SupplierType, decimal.NullDecimal) {
	supplierType := product.SupplierType
	rate := product.ConsignmentRate
	if product.SupplierID == nil {
		return supplierType, rate
	}
	supplier, ok := t[*product.SupplierID]
	if !ok {
		return supplierType, rate
	}
	typ := supplier.Type
	if !rate.Valid {
		rate = supplier.CommissionRate
	}
	return &typ, rate
}
