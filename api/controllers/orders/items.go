package orders

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/outre-records/inventory-core/api/responses"
	"github.com/outre-records/inventory-core/api/validators"
	internalorders "github.com/outre-records/inventory-core/internal/orders"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
)

type returnRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func itemCommand(logg *logger.Logger, svc internalorders.ItemService, fn func(ctx context.Context, w http.ResponseWriter, r *http.Request, itemID uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		itemID, err := validators.ParseURLUUID(r, "itemId", "item id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "order_item_id", itemID.String())
		}
		fn(ctx, w, r.WithContext(ctx), itemID)
	}
}

// CancelItem reverses the item's sale movement and may cancel its order.
func CancelItem(svc internalorders.ItemService, logg *logger.Logger) http.HandlerFunc {
	return itemCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, itemID uuid.UUID) {
		item, err := svc.CancelItem(ctx, itemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	})
}

// ReturnItem restocks a returned item. The reason is mandatory.
func ReturnItem(svc internalorders.ItemService, logg *logger.Logger) http.HandlerFunc {
	return itemCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, itemID uuid.UUID) {
		var payload returnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.ReturnItem(ctx, itemID, payload.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	})
}

// UpdateQuantity sets a new quantity on an active item and books the stock difference.
func UpdateQuantity(svc internalorders.ItemService, logg *logger.Logger) http.HandlerFunc {
	return itemCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, itemID uuid.UUID) {
		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := svc.UpdateQuantity(ctx, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	})
}
