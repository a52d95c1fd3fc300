package inventory

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/outre-records/inventory-core/api/responses"
	"github.com/outre-records/inventory-core/api/validators"
	internalinventory "github.com/outre-records/inventory-core/internal/inventory"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

type movementRequest struct {
	Type       string           `json:"type" validate:"required"`
	Quantity   int              `json:"quantity" validate:"required"`
	SupplierID *uuid.UUID       `json:"supplier_id,omitempty"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason     *string          `json:"reason,omitempty" validate:"omitempty,max=500"`
	Reference  *string          `json:"reference,omitempty" validate:"omitempty,max=128"`
}

type reconciliationResponse struct {
	*internalinventory.ReplayReport
	Consistent bool `json:"consistent"`
}

// RecordMovement books a manual stock movement. Sale-class movements are
// rejected; they are produced by order commands only.
func RecordMovement(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, err := validators.ParseURLUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithProductID(ctx, productID.String())
		}

		var payload movementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		typ, err := internalinventory.ValidateManualType(strings.TrimSpace(payload.Type))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := internalinventory.ApplyMovementInput{
			ProductID:  productID,
			Type:       typ,
			Quantity:   payload.Quantity,
			SupplierID: payload.SupplierID,
			Reason:     payload.Reason,
			Reference:  payload.Reference,
		}
		if payload.UnitCost != nil {
			input.UnitCost = decimal.NewNullDecimal(*payload.UnitCost)
		}
		if actor := outbox.ActorID(ctx); actor != "" {
			input.CreatedBy = &actor
		}

		movement, err := svc.ApplyMovement(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalinventory.NewMovementDTO(*movement))
	}
}

// ListMovements returns the product's ledger newest first.
func ListMovements(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		productID, err := validators.ParseURLUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMovements(r.Context(), productID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Reconcile replays the product's ledger and reports any drift from the stored stock.
func Reconcile(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		productID, err := validators.ParseURLUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Replay(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reconciliationResponse{ReplayReport: report, Consistent: report.Consistent()})
	}
}
