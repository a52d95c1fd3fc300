package catalog

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/outre-records/inventory-core/api/apitest"
	internalcatalog "github.com/outre-records/inventory-core/internal/catalog"
	"github.com/outre-records/inventory-core/internal/inventory"
	"github.com/outre-records/inventory-core/pkg/db/dbtest"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

func newService(t *testing.T) internalcatalog.Service {
	t.Helper()
	client, conn := dbtest.Client(t)
	ledger, err := inventory.NewService(inventory.ServiceParams{Repo: inventory.NewRepository(conn), Tx: client})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	svc, err := internalcatalog.NewService(internalcatalog.NewRepository(conn), client, ledger)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return svc
}

func createSupplier(t *testing.T, svc internalcatalog.Service, body map[string]any) internalcatalog.SupplierDTO {
	t.Helper()
	req := apitest.Request(t, http.MethodPost, "/api/v1/suppliers", body)
	return apitest.Data[internalcatalog.SupplierDTO](t, apitest.Serve(CreateSupplier(svc, logger.Nop()), req), http.StatusCreated)
}

func TestSupplierEndpoints(t *testing.T) {
	svc := newService(t)

	supplier := createSupplier(t, svc, map[string]any{"name": "Cold Spring Pressing", "type": "depot_vente", "commission_rate": "0.30"})
	if supplier.CommissionRate == nil || supplier.CommissionRate.String() != "0.3" {
		t.Fatalf("unexpected commission rate %v", supplier.CommissionRate)
	}

	req := apitest.Request(t, http.MethodGet, "/api/v1/suppliers/"+supplier.ID.String(), nil, "supplierId", supplier.ID.String())
	got := apitest.Data[internalcatalog.SupplierDTO](t, apitest.Serve(GetSupplier(svc, nil), req), http.StatusOK)
	if got.Name != "Cold Spring Pressing" {
		t.Fatalf("unexpected supplier %+v", got)
	}

	req = apitest.Request(t, http.MethodGet, "/api/v1/suppliers", nil)
	list := apitest.Data[[]internalcatalog.SupplierDTO](t, apitest.Serve(ListSuppliers(svc, nil), req), http.StatusOK)
	if len(list) != 1 {
		t.Fatalf("expected one supplier, got %d", len(list))
	}

	missing := uuid.New().String()
	req = apitest.Request(t, http.MethodGet, "/api/v1/suppliers/"+missing, nil, "supplierId", missing)
	apitest.ErrorCode(t, apitest.Serve(GetSupplier(svc, nil), req), http.StatusNotFound)
}

func TestCreateSupplierRejectsBadRate(t *testing.T) {
	svc := newService(t)
	req := apitest.Request(t, http.MethodPost, "/api/v1/suppliers", map[string]any{"name": "X", "type": "depot_vente", "commission_rate": "1.5"})
	code := apitest.ErrorCode(t, apitest.Serve(CreateSupplier(svc, nil), req), http.StatusBadRequest)
	if code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestProductEndpoints(t *testing.T) {
	svc := newService(t)
	supplier := createSupplier(t, svc, map[string]any{"name": "Basement Tapes", "type": "purchase"})

	req := apitest.Request(t, http.MethodPost, "/api/v1/products", map[string]any{
		"sku":             "BT-001",
		"title":           "Night Drives",
		"stock_threshold": 3,
		"cost_price":      "11.00",
		"supplier_id":     supplier.ID,
		"opening_stock":   2,
	})
	req = req.WithContext(outbox.WithActor(req.Context(), "buyer-1", "api"))
	product := apitest.Data[internalcatalog.ProductDTO](t, apitest.Serve(CreateProduct(svc, nil), req), http.StatusCreated)
	if product.Stock != 2 || !product.LowStock {
		t.Fatalf("expected opening stock 2 flagged low, got %+v", product)
	}

	dup := apitest.Request(t, http.MethodPost, "/api/v1/products", map[string]any{"sku": "BT-001", "title": "Again"})
	apitest.ErrorCode(t, apitest.Serve(CreateProduct(svc, nil), dup), http.StatusConflict)

	req = apitest.Request(t, http.MethodPatch, "/api/v1/products/"+product.ID.String(),
		map[string]any{"title": "Night Drives (Remaster)", "stock_threshold": 1}, "productId", product.ID.String())
	updated := apitest.Data[internalcatalog.ProductDTO](t, apitest.Serve(UpdateProduct(svc, nil), req), http.StatusOK)
	if updated.Title != "Night Drives (Remaster)" || updated.LowStock {
		t.Fatalf("unexpected update %+v", updated)
	}

	req = apitest.Request(t, http.MethodPatch, "/api/v1/products/"+product.ID.String(),
		map[string]any{"stock": 50}, "productId", product.ID.String())
	apitest.ErrorCode(t, apitest.Serve(UpdateProduct(svc, nil), req), http.StatusBadRequest)

	req = apitest.Request(t, http.MethodGet, "/api/v1/products?supplier_id="+supplier.ID.String()+"&q=night", nil)
	page := apitest.Data[pagination.Page[internalcatalog.ProductDTO]](t, apitest.Serve(ListProducts(svc, nil), req), http.StatusOK)
	if len(page.Items) != 1 || page.Items[0].ID != product.ID {
		t.Fatalf("unexpected listing %+v", page.Items)
	}

	req = apitest.Request(t, http.MethodGet, "/api/v1/products?low_stock=true", nil)
	page = apitest.Data[pagination.Page[internalcatalog.ProductDTO]](t, apitest.Serve(ListProducts(svc, nil), req), http.StatusOK)
	if len(page.Items) != 0 {
		t.Fatalf("expected no low stock products after threshold change, got %d", len(page.Items))
	}

	req = apitest.Request(t, http.MethodGet, "/api/v1/products?low_stock=sometimes", nil)
	apitest.ErrorCode(t, apitest.Serve(ListProducts(svc, nil), req), http.StatusBadRequest)
}
