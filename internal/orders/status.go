package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/outbox/payloads"
)

// SetStatus moves the order to any other non-side status and stamps the
// matching timestamp. Cancellation and refund have their own commands.
func (s *service) SetStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", status)
	}
	if status.RequiresReason() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "status %s requires the dedicated %s command", status, commandFor(status))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status == status {
			return nil
		}
		if !order.Status.CanTransitionTo(status) {
			return stateConflict(order, status)
		}

		now := s.now()
		updates := map[string]any{"status": status}
		if column := models.StatusTimestampColumn(status); column != "" {
			updates[column] = now
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				PreviousStatus: order.Status,
				Status:         status,
				ChangedAt:      now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
		}
		s.logStatus(ctx, order, status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

// ShipOrder marks the order shipped and stores whichever tracking fields are given.
// Shipping an already shipped order only updates the tracking details.
func (s *service) ShipOrder(ctx context.Context, orderID uuid.UUID, input ShipOrderInput) (*OrderDTO, error) {
	trackingNumber := trimmedPtr(input.TrackingNumber)
	trackingURL := trimmedPtr(input.TrackingURL)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return stateConflict(order, enums.OrderStatusShipped)
		}

		now := s.now()
		updates := map[string]any{"status": enums.OrderStatusShipped}
		if order.Status != enums.OrderStatusShipped || order.ShippedAt == nil {
			updates["shipped_at"] = now
		}
		if trackingNumber != nil {
			updates["tracking_number"] = *trackingNumber
		}
		if trackingURL != nil {
			updates["tracking_url"] = *trackingURL
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ship order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderShipped,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				PreviousStatus: order.Status,
				Status:         enums.OrderStatusShipped,
				TrackingNumber: trackingNumber,
				TrackingURL:    trackingURL,
				ChangedAt:      now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit shipped event")
		}
		s.logStatus(ctx, order, enums.OrderStatusShipped)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

// RefundOrder moves the order and its payment to refunded. Credit-note numbering
// happens downstream of the order_refunded event.
func (s *service) RefundOrder(ctx context.Context, orderID uuid.UUID, reason *string) (*OrderDTO, error) {
	reason = trimmedPtr(reason)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusRefunded {
			return nil
		}
		if order.Status.IsTerminal() {
			return stateConflict(order, enums.OrderStatusRefunded)
		}

		now := s.now()
		updates := map[string]any{
			"status":         enums.OrderStatusRefunded,
			"payment_status": enums.PaymentStatusRefunded,
			"refunded_at":    now,
		}
		if reason != nil {
			updates["refund_reason"] = *reason
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund order")
		}

		data := payloads.OrderRefundedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Total:       order.Total,
			Currency:    order.Currency,
			RefundedAt:  now,
		}
		if reason != nil {
			data.Reason = *reason
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data:          data,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund event")
		}
		s.logStatus(ctx, order, enums.OrderStatusRefunded)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

// CancelOrder cancels every active item, one reversal each, then the order itself.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (*OrderDTO, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusCancelled {
			return nil
		}
		if order.Status.IsTerminal() {
			return stateConflict(order, enums.OrderStatusCancelled)
		}

		items, err := repo.ListItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		for i := range items {
			if items[i].Status != enums.OrderItemStatusActive {
				continue
			}
			if _, err := s.closeItemTx(ctx, tx, repo, order, &items[i], enums.OrderItemStatusCancelled, reason); err != nil {
				return err
			}
		}
		if err := recomputeTotals(ctx, repo, order); err != nil {
			return err
		}

		now := s.now()
		changed, err := repo.CancelOpenOrder(ctx, order.ID, now, &reason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !changed {
			return nil
		}
		return s.emitCancelled(ctx, tx, order, now, false, reason)
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

// RequestRefund flags the order for operator review without changing its status.
func (s *service) RequestRefund(ctx context.Context, orderID uuid.UUID, reason string) (*OrderDTO, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusRefunded {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is already %s", order.Status)
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"refund_requested": true,
			"refund_reason":    reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag refund request")
		}
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "refund requested")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

// SetPaymentStatus records the payment state; paid_at is stamped the first time
// the order is marked paid.
func (s *service) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown payment status %q", status)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == status {
			return nil
		}
		updates := map[string]any{"payment_status": status}
		if status == enums.PaymentStatusPaid && order.PaidAt == nil {
			updates["paid_at"] = s.now()
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

// reevaluate cancels the order once it has no active item left. The conditional
// update makes repeated calls no-ops; the event is emitted only by the call that
// changed the row.
func (s *service) reevaluate(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) (bool, error) {
	remaining, err := repo.CountActiveItems(ctx, order.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active items")
	}
	if remaining > 0 {
		return false, nil
	}

	now := s.now()
	changed, err := repo.CancelOpenOrder(ctx, order.ID, now, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auto-cancel order")
	}
	if !changed {
		return false, nil
	}
	if err := s.emitCancelled(ctx, tx, order, now, true, ""); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) emitCancelled(ctx context.Context, tx *gorm.DB, order *models.Order, at time.Time, automatic bool, reason string) error {
	previous := order.Status
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &at

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		OccurredAt:    at,
		Data: payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Automatic:   automatic,
			Reason:      reason,
			CancelledAt: at,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit cancelled event")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"previous_status": string(previous),
		"automatic":       automatic,
	})
	s.logg.Info(logCtx, "order cancelled")
	return nil
}

func (s *service) logStatus(ctx context.Context, order *models.Order, status enums.OrderStatus) {
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"previous_status": string(order.Status),
		"status":          string(status),
	})
	s.logg.Info(logCtx, "order status changed")
}

func stateConflict(order *models.Order, target enums.OrderStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s and cannot move to %s", order.Status, target).
		WithDetails(map[string]any{"order_id": order.ID, "status": order.Status, "target": target})
}

func commandFor(status enums.OrderStatus) string {
	if status == enums.OrderStatusRefunded {
		return "refund"
	}
	return "cancel"
}
