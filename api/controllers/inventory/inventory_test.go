package inventory

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/outre-records/inventory-core/api/apitest"
	internalinventory "github.com/outre-records/inventory-core/internal/inventory"
	"github.com/outre-records/inventory-core/pkg/db/dbtest"
	"github.com/outre-records/inventory-core/pkg/db/models"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

func newService(t *testing.T) (internalinventory.Service, *models.Product) {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := internalinventory.NewService(internalinventory.ServiceParams{
		Repo: internalinventory.NewRepository(conn),
		Tx:   client,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, dbtest.Product(t, conn, 0, nil)
}

func movementsPath(id uuid.UUID) string {
	return "/api/v1/inventory/products/" + id.String() + "/movements"
}

func TestRecordMovement(t *testing.T) {
	svc, product := newService(t)

	req := apitest.Request(t, http.MethodPost, movementsPath(product.ID),
		map[string]any{"type": "purchase", "quantity": 12, "unit_cost": "8.25", "reference": "PO-77"},
		"productId", product.ID.String())
	req = req.WithContext(outbox.WithActor(req.Context(), "receiving", "api"))
	rec := apitest.Serve(RecordMovement(svc, logger.Nop()), req)

	dto := apitest.Data[internalinventory.MovementDTO](t, rec, http.StatusCreated)
	if dto.StockBefore != 0 || dto.StockAfter != 12 || dto.Delta != 12 {
		t.Fatalf("unexpected movement %+v", dto)
	}
	if dto.CreatedBy == nil || *dto.CreatedBy != "receiving" {
		t.Fatalf("expected actor recorded, got %v", dto.CreatedBy)
	}
	if dto.UnitCost == nil || dto.UnitCost.String() != "8.25" {
		t.Fatalf("expected unit cost, got %v", dto.UnitCost)
	}
}

func TestRecordMovementRejectsSaleTypes(t *testing.T) {
	svc, product := newService(t)

	for _, typ := range []string{"sale", "sale_reversal", "sale_adjustment", "teleport"} {
		req := apitest.Request(t, http.MethodPost, movementsPath(product.ID),
			map[string]any{"type": typ, "quantity": 1}, "productId", product.ID.String())
		rec := apitest.Serve(RecordMovement(svc, nil), req)
		if code := apitest.ErrorCode(t, rec, http.StatusUnprocessableEntity); code != string(pkgerrors.CodeInvalidMovementType) {
			t.Fatalf("%s: unexpected code %s", typ, code)
		}
	}
}

func TestRecordMovementValidation(t *testing.T) {
	svc, product := newService(t)

	req := apitest.Request(t, http.MethodPost, movementsPath(product.ID),
		map[string]any{"type": "purchase", "quantity": 1}, "productId", "nope")
	apitest.ErrorCode(t, apitest.Serve(RecordMovement(svc, nil), req), http.StatusBadRequest)

	req = apitest.Request(t, http.MethodPost, movementsPath(product.ID),
		`{"type":"purchase"}`, "productId", product.ID.String())
	apitest.ErrorCode(t, apitest.Serve(RecordMovement(svc, nil), req), http.StatusBadRequest)

	missing := uuid.New()
	req = apitest.Request(t, http.MethodPost, movementsPath(missing),
		map[string]any{"type": "purchase", "quantity": 1}, "productId", missing.String())
	apitest.ErrorCode(t, apitest.Serve(RecordMovement(svc, nil), req), http.StatusNotFound)

	rec := apitest.Serve(RecordMovement(nil, nil), req)
	apitest.ErrorCode(t, rec, http.StatusInternalServerError)
}

func TestListMovementsAndReconcile(t *testing.T) {
	svc, product := newService(t)
	for _, body := range []map[string]any{
		{"type": "purchase", "quantity": 10},
		{"type": "loss", "quantity": 2},
		{"type": "adjustment", "quantity": -1},
	} {
		req := apitest.Request(t, http.MethodPost, movementsPath(product.ID), body, "productId", product.ID.String())
		apitest.Data[internalinventory.MovementDTO](t, apitest.Serve(RecordMovement(svc, nil), req), http.StatusCreated)
	}

	req := apitest.Request(t, http.MethodGet, movementsPath(product.ID)+"?limit=2", nil, "productId", product.ID.String())
	page := apitest.Data[pagination.Page[internalinventory.MovementDTO]](t, apitest.Serve(ListMovements(svc, nil), req), http.StatusOK)
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("expected a first page of 2 with a cursor, got %d items", len(page.Items))
	}
	if page.Items[0].StockAfter != 7 {
		t.Fatalf("expected newest movement first, got stock_after %d", page.Items[0].StockAfter)
	}

	req = apitest.Request(t, http.MethodGet, movementsPath(product.ID)+"?limit=0", nil, "productId", product.ID.String())
	apitest.ErrorCode(t, apitest.Serve(ListMovements(svc, nil), req), http.StatusBadRequest)

	req = apitest.Request(t, http.MethodGet, "/reconciliation", nil, "productId", product.ID.String())
	report := apitest.Data[struct {
		ReplayedStock int  `json:"replayed_stock"`
		CurrentStock  int  `json:"current_stock"`
		Consistent    bool `json:"consistent"`
	}](t, apitest.Serve(Reconcile(svc, nil), req), http.StatusOK)
	if !report.Consistent || report.ReplayedStock != 7 || report.CurrentStock != 7 {
		t.Fatalf("unexpected report %+v", report)
	}
}
