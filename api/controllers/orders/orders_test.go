package orders

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/api/apitest"
	"github.com/outre-records/inventory-core/internal/catalog"
	"github.com/outre-records/inventory-core/internal/inventory"
	internalorders "github.com/outre-records/inventory-core/internal/orders"
	"github.com/outre-records/inventory-core/pkg/db/dbtest"
	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

func newService(t *testing.T) (internalorders.Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	ledger, err := inventory.NewService(inventory.ServiceParams{Repo: inventory.NewRepository(conn), Tx: client})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	svc, err := internalorders.NewService(internalorders.ServiceParams{
		Repo:    internalorders.NewRepository(conn),
		Catalog: catalog.NewRepository(conn),
		Tx:      client,
		Ledger:  ledger,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), nil),
	})
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	return svc, conn
}

func placeOrder(t *testing.T, svc internalorders.Service, product *models.Product, qty int) internalorders.OrderDTO {
	t.Helper()
	req := apitest.Request(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"customer_email": "listener@example.com",
		"items": []map[string]any{
			{"product_id": product.ID, "quantity": qty, "unit_price": "24.00"},
		},
	})
	return apitest.Data[internalorders.OrderDTO](t, apitest.Serve(PlaceOrder(svc, logger.Nop()), req), http.StatusCreated)
}

func orderRequest(t *testing.T, method string, orderID uuid.UUID, suffix string, body any) *http.Request {
	return apitest.Request(t, method, "/api/v1/orders/"+orderID.String()+suffix, body, "orderId", orderID.String())
}

func itemRequest(t *testing.T, method string, itemID uuid.UUID, suffix string, body any) *http.Request {
	return apitest.Request(t, method, "/api/v1/order-items/"+itemID.String()+suffix, body, "itemId", itemID.String())
}

func TestPlaceOrderAndDetail(t *testing.T) {
	svc, conn := newService(t)
	product := dbtest.Product(t, conn, 5, nil)

	order := placeOrder(t, svc, product, 2)
	if order.Status != enums.OrderStatusPending || len(order.Items) != 1 {
		t.Fatalf("unexpected order %+v", order)
	}
	if order.Total.String() != "48" {
		t.Fatalf("unexpected total %s", order.Total)
	}
	if stock := dbtest.Reload[models.Product](t, conn, product.ID).Stock; stock != 3 {
		t.Fatalf("expected stock 3 after sale, got %d", stock)
	}

	got := apitest.Data[internalorders.OrderDTO](t, apitest.Serve(Detail(svc, nil), orderRequest(t, http.MethodGet, order.ID, "", nil)), http.StatusOK)
	if got.ID != order.ID || len(got.Items) != 1 {
		t.Fatalf("unexpected detail %+v", got)
	}

	missing := uuid.New()
	apitest.ErrorCode(t, apitest.Serve(Detail(svc, nil), orderRequest(t, http.MethodGet, missing, "", nil)), http.StatusNotFound)
}

func TestPlaceOrderValidation(t *testing.T) {
	svc, _ := newService(t)

	req := apitest.Request(t, http.MethodPost, "/api/v1/orders", map[string]any{"items": []any{}})
	apitest.ErrorCode(t, apitest.Serve(PlaceOrder(svc, nil), req), http.StatusBadRequest)

	req = apitest.Request(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"items": []map[string]any{{"product_id": uuid.New(), "quantity": 1, "unit_price": "5"}},
	})
	apitest.ErrorCode(t, apitest.Serve(PlaceOrder(svc, nil), req), http.StatusNotFound)
}

func TestStatusCommands(t *testing.T) {
	svc, conn := newService(t)
	product := dbtest.Product(t, conn, 5, nil)
	order := placeOrder(t, svc, product, 1)

	confirmed := apitest.Data[internalorders.OrderDTO](t,
		apitest.Serve(SetStatus(svc, nil), orderRequest(t, http.MethodPost, order.ID, "/status", map[string]string{"status": "confirmed"})),
		http.StatusOK)
	if confirmed.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	apitest.ErrorCode(t,
		apitest.Serve(SetStatus(svc, nil), orderRequest(t, http.MethodPost, order.ID, "/status", map[string]string{"status": "lost"})),
		http.StatusBadRequest)

	flagged := apitest.Data[internalorders.OrderDTO](t,
		apitest.Serve(RequestRefund(svc, nil), orderRequest(t, http.MethodPost, order.ID, "/refund-request", map[string]string{"reason": "skips on side B"})),
		http.StatusOK)
	if !flagged.RefundRequested {
		t.Fatalf("expected refund flag")
	}
	apitest.ErrorCode(t,
		apitest.Serve(RequestRefund(svc, nil), orderRequest(t, http.MethodPost, order.ID, "/refund-request", nil)),
		http.StatusBadRequest)

	paid := apitest.Data[internalorders.OrderDTO](t,
		apitest.Serve(SetPaymentStatus(svc, nil), orderRequest(t, http.MethodPost, order.ID, "/payment-status", map[string]string{"status": "paid"})),
		http.StatusOK)
	if paid.PaidAt == nil {
		t.Fatalf("expected paid_at stamped")
	}

	shipped := apitest.Data[internalorders.OrderDTO](t,
		apitest.Serve(Ship(svc, nil), orderRequest(t, http.MethodPost, order.ID, "/ship", nil)),
		http.StatusOK)
	if shipped.Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", shipped.Status)
	}

	refunded := apitest.Data[internalorders.OrderDTO](t,
		apitest.Serve(Refund(svc, nil), orderRequest(t, http.MethodPost, order.ID, "/refund", map[string]string{"reason": "customer request"})),
		http.StatusOK)
	if refunded.Status != enums.OrderStatusRefunded {
		t.Fatalf("expected refunded, got %s", refunded.Status)
	}
}

func TestCancelOrderRestocks(t *testing.T) {
	svc, conn := newService(t)
	product := dbtest.Product(t, conn, 5, nil)
	order := placeOrder(t, svc, product, 2)

	cancelled := apitest.Data[internalorders.OrderDTO](t,
		apitest.Serve(Cancel(svc, nil), orderRequest(t, http.MethodPost, order.ID, "/cancel", map[string]string{"reason": "duplicate"})),
		http.StatusOK)
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if stock := dbtest.Reload[models.Product](t, conn, product.ID).Stock; stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", stock)
	}
}

func TestItemCommands(t *testing.T) {
	svc, conn := newService(t)
	product := dbtest.Product(t, conn, 10, nil)
	order := placeOrder(t, svc, product, 3)
	itemID := order.Items[0].ID

	code := apitest.ErrorCode(t,
		apitest.Serve(UpdateQuantity(svc, nil), itemRequest(t, http.MethodPatch, itemID, "/quantity", map[string]int{"quantity": 0})),
		http.StatusUnprocessableEntity)
	if code != string(pkgerrors.CodeInvalidQuantity) {
		t.Fatalf("unexpected code %s", code)
	}

	item := apitest.Data[internalorders.OrderItemDTO](t,
		apitest.Serve(UpdateQuantity(svc, nil), itemRequest(t, http.MethodPatch, itemID, "/quantity", map[string]int{"quantity": 5})),
		http.StatusOK)
	if item.Quantity != 5 || item.TotalPrice.String() != "120" {
		t.Fatalf("unexpected item %+v", item)
	}

	code = apitest.ErrorCode(t,
		apitest.Serve(ReturnItem(svc, nil), itemRequest(t, http.MethodPost, itemID, "/return", map[string]string{"reason": " "})),
		http.StatusUnprocessableEntity)
	if code != string(pkgerrors.CodeMissingReturnReason) {
		t.Fatalf("unexpected code %s", code)
	}

	returned := apitest.Data[internalorders.OrderItemDTO](t,
		apitest.Serve(ReturnItem(svc, nil), itemRequest(t, http.MethodPost, itemID, "/return", map[string]string{"reason": "warped"})),
		http.StatusOK)
	if returned.Status != enums.OrderItemStatusReturned {
		t.Fatalf("expected returned, got %s", returned.Status)
	}

	code = apitest.ErrorCode(t,
		apitest.Serve(CancelItem(svc, nil), itemRequest(t, http.MethodPost, itemID, "/cancel", nil)),
		http.StatusConflict)
	if code != string(pkgerrors.CodeItemNotActive) {
		t.Fatalf("unexpected code %s", code)
	}
	if stock := dbtest.Reload[models.Product](t, conn, product.ID).Stock; stock != 10 {
		t.Fatalf("expected stock back to 10, got %d", stock)
	}
}

func TestListOrders(t *testing.T) {
	svc, conn := newService(t)
	product := dbtest.Product(t, conn, 10, nil)
	first := placeOrder(t, svc, product, 1)
	placeOrder(t, svc, product, 1)
	apitest.Serve(SetPaymentStatus(svc, nil), orderRequest(t, http.MethodPost, first.ID, "/payment-status", map[string]string{"status": "paid"}))

	req := apitest.Request(t, http.MethodGet, "/api/v1/orders?payment_status=paid", nil)
	page := apitest.Data[pagination.Page[internalorders.OrderDTO]](t, apitest.Serve(List(svc, nil), req), http.StatusOK)
	if len(page.Items) != 1 || page.Items[0].ID != first.ID {
		t.Fatalf("unexpected filtered page %+v", page.Items)
	}

	req = apitest.Request(t, http.MethodGet, "/api/v1/orders?limit=1", nil)
	page = apitest.Data[pagination.Page[internalorders.OrderDTO]](t, apitest.Serve(List(svc, nil), req), http.StatusOK)
	if len(page.Items) != 1 || page.NextCursor == "" {
		t.Fatalf("expected first page with cursor")
	}

	for _, query := range []string{"status=lost", "refund_requested=perhaps", "created_from=yesterday",
		"created_from=2026-10-02T00:00:00Z&created_to=2026-10-01T00:00:00Z", "cursor=not-a-cursor!"} {
		req = apitest.Request(t, http.MethodGet, "/api/v1/orders?"+query, nil)
		apitest.ErrorCode(t, apitest.Serve(List(svc, nil), req), http.StatusBadRequest)
	}
}
