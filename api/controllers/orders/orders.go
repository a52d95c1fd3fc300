package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/outre-records/inventory-core/api/responses"
	"github.com/outre-records/inventory-core/api/validators"
	internalorders "github.com/outre-records/inventory-core/internal/orders"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type reasonRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type refundRequestBody struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// orderCommand parses the order id and scopes the logger before running fn.
func orderCommand(logg *logger.Logger, svc internalorders.Service, fn func(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId", "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		fn(ctx, w, r.WithContext(ctx), orderID)
	}
}

// PlaceOrder creates an order and books a sale movement for each line.
func PlaceOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		var payload internalorders.PlaceOrderInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.PlaceOrder(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID uuid.UUID) {
		order, err := svc.GetOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	})
}

// List pages through orders newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListOrders(r.Context(), internalorders.ListOrdersInput{
			Limit:   limit,
			Cursor:  strings.TrimSpace(r.URL.Query().Get("cursor")),
			Filters: filters,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func buildFilters(r *http.Request) (internalorders.OrderFilters, error) {
	var filters internalorders.OrderFilters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status filter")
		}
		filters.PaymentStatus = &status
	}
	refundRequested, err := validators.ParseQueryBool(r, "refund_requested")
	if err != nil {
		return filters, err
	}
	filters.RefundRequested = refundRequested

	if filters.CreatedFrom, err = validators.ParseQueryTime(r, "created_from"); err != nil {
		return filters, err
	}
	if filters.CreatedTo, err = validators.ParseQueryTime(r, "created_to"); err != nil {
		return filters, err
	}
	if filters.CreatedFrom != nil && filters.CreatedTo != nil && filters.CreatedTo.Before(*filters.CreatedFrom) {
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "created_to must not be before created_from")
	}
	return filters, nil
}

// SetStatus applies an explicit order status transition.
func SetStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID uuid.UUID) {
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		order, err := svc.SetStatus(ctx, orderID, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	})
}

func Ship(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID uuid.UUID) {
		var payload internalorders.ShipOrderInput
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		order, err := svc.ShipOrder(ctx, orderID, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	})
}

func Refund(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID uuid.UUID) {
		var payload reasonRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		order, err := svc.RefundOrder(ctx, orderID, payload.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	})
}

func RequestRefund(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID uuid.UUID) {
		var payload refundRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		order, err := svc.RequestRefund(ctx, orderID, payload.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	})
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID uuid.UUID) {
		var payload reasonRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		reason := ""
		if payload.Reason != nil {
			reason = *payload.Reason
		}
		order, err := svc.CancelOrder(ctx, orderID, reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	})
}

func SetPaymentStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID uuid.UUID) {
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParsePaymentStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
			return
		}
		order, err := svc.SetPaymentStatus(ctx, orderID, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	})
}
