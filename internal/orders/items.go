package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/internal/inventory"
	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/outbox/payloads"
)

const itemCancelledReason = "order item cancelled"

// CancelItem moves an active item to cancelled and puts its quantity back in stock.
func (s *service) CancelItem(ctx context.Context, itemID uuid.UUID) (*OrderItemDTO, error) {
	return s.closeItem(ctx, itemID, enums.OrderItemStatusCancelled, "")
}

// ReturnItem moves an active item to returned and puts its quantity back in stock.
func (s *service) ReturnItem(ctx context.Context, itemID uuid.UUID, reason string) (*OrderItemDTO, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingReturnReason, "return reason is required")
	}
	return s.closeItem(ctx, itemID, enums.OrderItemStatusReturned, reason)
}

func (s *service) closeItem(ctx context.Context, itemID uuid.UUID, target enums.OrderItemStatus, reason string) (*OrderItemDTO, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	var result models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, item, err := s.lockItem(ctx, repo, itemID)
		if err != nil {
			return err
		}
		closed, err := s.closeItemTx(ctx, tx, repo, order, item, target, reason)
		if err != nil {
			return err
		}
		if err := recomputeTotals(ctx, repo, order); err != nil {
			return err
		}
		if _, err := s.reevaluate(ctx, tx, repo, order); err != nil {
			return err
		}
		result = *closed
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := NewOrderItemDTO(result)
	return &dto, nil
}

// lockItem resolves the item's order, locks it, then re-reads the item so its
// status and quantity are current under the lock.
func (s *service) lockItem(ctx context.Context, repo Repository, itemID uuid.UUID) (*models.Order, *models.OrderItem, error) {
	item, err := repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, nil, notFoundOr(err, "order item")
	}
	order, err := lockOrder(ctx, repo, item.OrderID)
	if err != nil {
		return nil, nil, err
	}
	item, err = repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, nil, notFoundOr(err, "order item")
	}
	return order, item, nil
}

// closeItemTx performs the active -> cancelled/returned transition and the
// matching sale reversal. The caller owns the order lock.
func (s *service) closeItemTx(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, item *models.OrderItem, target enums.OrderItemStatus, reason string) (*models.OrderItem, error) {
	now := s.now()
	updates := map[string]any{"status": target}
	ledgerReason := itemCancelledReason
	switch target {
	case enums.OrderItemStatusCancelled:
		updates["cancelled_at"] = now
	case enums.OrderItemStatusReturned:
		updates["returned_at"] = now
		updates["return_reason"] = reason
		ledgerReason = "return: " + reason
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeInternal, "unsupported item target status %q", target)
	}
	if !item.Status.CanTransitionTo(target) {
		return nil, itemNotActive(item)
	}

	moved, err := repo.TransitionItem(ctx, item.ID, item.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item status")
	}
	if !moved {
		return nil, itemNotActive(item)
	}

	movement, err := s.ledger.ApplyMovementTx(ctx, tx, inventory.ApplyMovementInput{
		ProductID:  item.ProductID,
		Type:       enums.MovementSaleReversal,
		Quantity:   item.Quantity,
		OrderID:    &order.ID,
		SupplierID: item.SupplierID,
		Reason:     &ledgerReason,
		Reference:  &order.OrderNumber,
		CreatedBy:  actorPtr(ctx),
	})
	if err != nil {
		return nil, err
	}
	if err := repo.LinkItemMovement(ctx, item.ID, "reversed_stock_movement_id", movement.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link reversal movement")
	}

	item.Status = target
	item.ReversedStockMovementID = &movement.ID
	eventType := enums.EventOrderItemCancelled
	if target == enums.OrderItemStatusCancelled {
		item.CancelledAt = &now
	} else {
		item.ReturnedAt = &now
		item.ReturnReason = &reason
		eventType = enums.EventOrderItemReturned
	}

	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrderItem,
		AggregateID:   item.ID,
		OccurredAt:    now,
		Data: payloads.OrderItemChangedEvent{
			OrderID:          order.ID,
			OrderItemID:      item.ID,
			ProductID:        item.ProductID,
			Status:           target,
			PreviousQuantity: item.Quantity,
			Quantity:         item.Quantity,
			StockMovementID:  movement.ID,
			Reason:           reason,
			OccurredAt:       now,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit item event")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_item_id": item.ID.String(),
		"item_status":   string(target),
		"movement_id":   movement.ID.String(),
	})
	s.logg.Info(logCtx, "order item closed")
	return item, nil
}

// UpdateQuantity changes an active item's quantity and books the stock
// difference as a sale adjustment of current - new.
func (s *service) UpdateQuantity(ctx context.Context, itemID uuid.UUID, newQuantity int) (*OrderItemDTO, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	var result models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, item, err := s.lockItem(ctx, repo, itemID)
		if err != nil {
			return err
		}
		if item.Status.IsTerminal() {
			return itemNotActive(item)
		}
		if newQuantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be greater than zero")
		}
		if newQuantity == item.Quantity {
			return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity is unchanged")
		}

		previous := item.Quantity
		total := models.LineTotal(newQuantity, item.UnitPrice)
		updated, err := repo.UpdateItemQuantity(ctx, item.ID, previous, newQuantity, total)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item quantity")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConcurrentConflict, "order item changed concurrently").
				WithDetails(map[string]any{"order_item_id": item.ID, "expected_quantity": previous})
		}

		reason := "quantity changed"
		movement, err := s.ledger.ApplyMovementTx(ctx, tx, inventory.ApplyMovementInput{
			ProductID:  item.ProductID,
			Type:       enums.MovementSaleAdjustment,
			Quantity:   previous - newQuantity,
			OrderID:    &order.ID,
			SupplierID: item.SupplierID,
			Reason:     &reason,
			Reference:  &order.OrderNumber,
			CreatedBy:  actorPtr(ctx),
		})
		if err != nil {
			return err
		}

		item.Quantity = newQuantity
		item.TotalPrice = total
		now := s.now()
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderItemQuantityChanged,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			OccurredAt:    now,
			Data: payloads.OrderItemChangedEvent{
				OrderID:          order.ID,
				OrderItemID:      item.ID,
				ProductID:        item.ProductID,
				Status:           item.Status,
				PreviousQuantity: previous,
				Quantity:         newQuantity,
				StockMovementID:  movement.ID,
				OccurredAt:       now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit item event")
		}
		if err := recomputeTotals(ctx, repo, order); err != nil {
			return err
		}
		result = *item
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := NewOrderItemDTO(result)
	return &dto, nil
}

func itemNotActive(item *models.OrderItem) error {
	return pkgerrors.Newf(pkgerrors.CodeItemNotActive, "order item is %s", item.Status).
		WithDetails(map[string]any{"order_item_id": item.ID, "status": item.Status})
}
