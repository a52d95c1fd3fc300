package settlements

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/dbtest"
	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/outbox/payloads"
)

type harness struct {
	svc  Service
	conn *gorm.DB
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Tx:     client,
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
		Now:    func() time.Time { return time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return &harness{svc: svc, conn: conn}
}

// sell inserts an order in the given status holding one item per total.
func (h *harness) sell(t *testing.T, supplier *models.Supplier, status enums.OrderStatus, at time.Time, totals ...string) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber: "ORD-" + uuid.NewString()[:8],
		Status:      status,
		CreatedAt:   at,
	}
	require.NoError(t, h.conn.Create(order).Error)
	for _, total := range totals {
		price := decimal.RequireFromString(total)
		item := &models.OrderItem{
			OrderID:    order.ID,
			ProductID:  uuid.New(),
			Quantity:   1,
			UnitPrice:  price,
			TotalPrice: price,
			Status:     enums.OrderItemStatusActive,
			SupplierID: &supplier.ID,
			CreatedAt:  at,
		}
		require.NoError(t, h.conn.Create(item).Error)
	}
	return order
}

func (h *harness) events(t *testing.T, eventType enums.OutboxEventType, aggregateID uuid.UUID) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, h.conn.Where("event_type = ? AND aggregate_id = ?", eventType, aggregateID).Find(&rows).Error)
	return rows
}

func decodeEvent(t *testing.T, row models.OutboxEvent, data any) outbox.PayloadEnvelope {
	t.Helper()
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, data))
	return envelope
}

func decEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s got %s", want, got)
}

func TestComputeForSupplierConsignment(t *testing.T) {
	h := newHarness(t)
	supplier := dbtest.Supplier(t, h.conn, enums.SupplierTypeConsignment, "0.30")
	h.sell(t, supplier, enums.OrderStatusDelivered, midPeriod, "60", "40")

	got, err := h.svc.ComputeForSupplier(context.Background(), supplier.ID, periodStart, periodEnd)
	require.NoError(t, err)

	assert.Equal(t, 2, got.ItemCount)
	decEqual(t, "100.00", got.GrossSales)
	decEqual(t, "30.00", got.CommissionAmount)
	decEqual(t, "70.00", got.PayoutAmount)
	decEqual(t, "30.00", got.OurMargin)
	assert.True(t, got.PayoutAmount.Add(got.CommissionAmount).Equal(got.GrossSales))
}

func TestComputeForSupplierIgnoresLaterTermChanges(t *testing.T) {
	h := newHarness(t)
	supplier := dbtest.Supplier(t, h.conn, enums.SupplierTypeConsignment, "0.30")
	order := h.sell(t, supplier, enums.OrderStatusDelivered, midPeriod, "100")
	require.NoError(t, h.conn.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Updates(map[string]any{
		"supplier_type":    enums.SupplierTypeConsignment,
		"consignment_rate": decimal.RequireFromString("0.30"),
	}).Error)

	before, err := h.svc.ComputeForSupplier(context.Background(), supplier.ID, periodStart, periodEnd)
	require.NoError(t, err)

	require.NoError(t, h.conn.Model(&models.Supplier{}).Where("id = ?", supplier.ID).Updates(map[string]any{
		"type":            enums.SupplierTypePurchase,
		"commission_rate": decimal.RequireFromString("0.50"),
	}).Error)

	after, err := h.svc.ComputeForSupplier(context.Background(), supplier.ID, periodStart, periodEnd)
	require.NoError(t, err)

	decEqual(t, "30.00", after.CommissionAmount)
	decEqual(t, "70.00", after.PayoutAmount)
	decEqual(t, "30.00", after.OurMargin)
	assert.True(t, before.CommissionAmount.Equal(after.CommissionAmount))
	assert.True(t, before.PayoutAmount.Equal(after.PayoutAmount))
	assert.Equal(t, enums.SupplierTypePurchase, after.SupplierType)
}

func TestComputeForSupplierSkipsDeadOrdersAndClosedItems(t *testing.T) {
	h := newHarness(t)
	supplier := dbtest.Supplier(t, h.conn, enums.SupplierTypeConsignment, "0.50")

	h.sell(t, supplier, enums.OrderStatusShipped, midPeriod, "20")
	h.sell(t, supplier, enums.OrderStatusCancelled, midPeriod, "300")
	h.sell(t, supplier, enums.OrderStatusRefunded, midPeriod, "300")
	h.sell(t, supplier, enums.OrderStatusPending, periodEnd.Add(time.Hour), "300")

	returned := h.sell(t, supplier, enums.OrderStatusDelivered, midPeriod, "300")
	require.NoError(t, h.conn.Model(&models.OrderItem{}).
		Where("order_id = ?", returned.ID).
		Update("status", enums.OrderItemStatusReturned).Error)

	got, err := h.svc.ComputeForSupplier(context.Background(), supplier.ID, periodStart, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ItemCount)
	decEqual(t, "20", got.GrossSales)
	decEqual(t, "10", got.CommissionAmount)
	decEqual(t, "10", got.PayoutAmount)
}

func TestComputeForSupplierErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.ComputeForSupplier(ctx, uuid.New(), periodStart, periodEnd)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	supplier := dbtest.Supplier(t, h.conn, enums.SupplierTypeConsignment, "")
	_, err = h.svc.ComputeForSupplier(ctx, supplier.ID, periodEnd, periodStart)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestComputeAllIncludesIdleSuppliers(t *testing.T) {
	h := newHarness(t)
	consignment := dbtest.Supplier(t, h.conn, enums.SupplierTypeConsignment, "0.30")
	purchase := dbtest.Supplier(t, h.conn, enums.SupplierTypePurchase, "")
	idle := dbtest.Supplier(t, h.conn, enums.SupplierTypeDepotVente, "0.20")

	h.sell(t, consignment, enums.OrderStatusConfirmed, midPeriod, "10")
	h.sell(t, purchase, enums.OrderStatusConfirmed, midPeriod, "45.50")

	rows, err := h.svc.ComputeAll(context.Background(), periodStart, periodEnd)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byID := make(map[uuid.UUID]Settlement, len(rows))
	for _, row := range rows {
		byID[row.SupplierID] = row
	}
	decEqual(t, "3", byID[consignment.ID].CommissionAmount)
	decEqual(t, "7", byID[consignment.ID].PayoutAmount)
	decEqual(t, "0", byID[purchase.ID].PayoutAmount)
	decEqual(t, "45.50", byID[purchase.ID].OurMargin)
	assert.Zero(t, byID[idle.ID].ItemCount)
	decEqual(t, "0", byID[idle.ID].GrossSales)
}

func TestWriteReport(t *testing.T) {
	h := newHarness(t)
	supplier := dbtest.Supplier(t, h.conn, enums.SupplierTypeConsignment, "0.30")
	h.sell(t, supplier, enums.OrderStatusDelivered, midPeriod, "60", "40")

	var buf bytes.Buffer
	require.NoError(t, h.svc.WriteReport(context.Background(), &buf, periodStart, periodEnd))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{reportSheet}, f.GetSheetList())
	rows, err := f.GetRows(reportSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "Supplier settlements 2026-09-01 to 2026-09-30", rows[0][0])
	assert.Equal(t, "Supplier", rows[2][0])
	assert.Equal(t, "Our margin", rows[2][7])

	assert.Equal(t, supplier.Name, rows[3][0])
	assert.Equal(t, "consignment", rows[3][1])
	assert.Equal(t, "2", rows[3][2])
	assert.Equal(t, "100", rows[3][4])
	assert.Equal(t, "30", rows[3][5])
	assert.Equal(t, "70", rows[3][6])

	assert.Equal(t, "Total", rows[4][0])
	assert.Equal(t, "70", rows[4][6])
}

func TestWriteSettlementReportWithoutRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSettlementReport(&buf, periodStart, periodEnd, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Total", rows[3][0])
}

func TestCreatePayout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	supplier := dbtest.Supplier(t, h.conn, enums.SupplierTypeConsignment, "0.30")

	payout, err := h.svc.CreatePayout(ctx, CreatePayoutInput{
		SupplierID:       supplier.ID,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		GrossSales:       decimal.RequireFromString("100"),
		CommissionAmount: decimal.RequireFromString("30.004"),
		PayoutAmount:     decimal.RequireFromString("69.996"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusPending, payout.Status)
	decEqual(t, "30.00", payout.CommissionAmount)
	decEqual(t, "70.00", payout.PayoutAmount)
	assert.Nil(t, payout.PaidAt)

	_, err = h.svc.CreatePayout(ctx, CreatePayoutInput{SupplierID: uuid.New(), PeriodStart: periodStart, PeriodEnd: periodEnd})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.CreatePayout(ctx, CreatePayoutInput{SupplierID: supplier.ID, PeriodStart: periodEnd, PeriodEnd: periodStart})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.CreatePayout(ctx, CreatePayoutInput{PeriodStart: periodStart, PeriodEnd: periodEnd})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func (h *harness) pendingPayout(t *testing.T) *PayoutDTO {
	t.Helper()
	supplier := dbtest.Supplier(t, h.conn, enums.SupplierTypeConsignment, "0.30")
	payout, err := h.svc.CreatePayout(context.Background(), CreatePayoutInput{
		SupplierID:       supplier.ID,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		GrossSales:       decimal.NewFromInt(100),
		CommissionAmount: decimal.NewFromInt(30),
		PayoutAmount:     decimal.NewFromInt(70),
	})
	require.NoError(t, err)
	return payout
}

func TestMarkPaidOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	payout := h.pendingPayout(t)

	ref := "  SEPA-2026-10-02 "
	paid, err := h.svc.MarkPaid(ctx, payout.ID, &ref)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)))
	require.NotNil(t, paid.PaymentReference)
	assert.Equal(t, "SEPA-2026-10-02", *paid.PaymentReference)

	events := h.events(t, enums.EventPayoutPaid, payout.ID)
	require.Len(t, events, 1)
	var data payloads.PayoutPaidEvent
	decodeEvent(t, events[0], &data)
	assert.Equal(t, payout.SupplierID, data.SupplierID)
	decEqual(t, "70", data.PayoutAmount)

	_, err = h.svc.MarkPaid(ctx, payout.ID, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePayoutAlreadyPaid))
	assert.Len(t, h.events(t, enums.EventPayoutPaid, payout.ID), 1)

	_, err = h.svc.MarkPaid(ctx, uuid.New(), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMarkPaidRejectsStatusOutsideTransitionTable(t *testing.T) {
	h := newHarness(t)
	payout := h.pendingPayout(t)
	require.NoError(t, h.conn.Model(&models.SupplierPayout{}).Where("id = ?", payout.ID).
		Update("status", "void").Error)

	_, err := h.svc.MarkPaid(context.Background(), payout.ID, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, h.events(t, enums.EventPayoutPaid, payout.ID))
}

func TestDeletePayoutRemovesPaidPayout(t *testing.T) {
	h := newHarness(t)
	payout := h.pendingPayout(t)
	_, err := h.svc.MarkPaid(context.Background(), payout.ID, nil)
	require.NoError(t, err)

	ctx := outbox.WithActor(context.Background(), "accounting@outre.example", "api")
	require.NoError(t, h.svc.DeletePayout(ctx, payout.ID))

	_, err = h.svc.GetPayout(ctx, payout.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	events := h.events(t, enums.EventPayoutDeleted, payout.ID)
	require.Len(t, events, 1)
	var data payloads.PayoutDeletedEvent
	envelope := decodeEvent(t, events[0], &data)
	assert.Equal(t, enums.PayoutStatusPaid, data.Status)
	assert.Equal(t, "accounting@outre.example", data.DeletedBy)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "accounting@outre.example", envelope.Actor.ActorID)

	err = h.svc.DeletePayout(ctx, payout.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPayouts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.pendingPayout(t)
	second := h.pendingPayout(t)
	third := h.pendingPayout(t)
	_, err := h.svc.MarkPaid(ctx, second.ID, nil)
	require.NoError(t, err)

	page, err := h.svc.ListPayouts(ctx, ListPayoutsInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := h.svc.ListPayouts(ctx, ListPayoutsInput{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, p := range append(page.Items, rest.Items...) {
		seen[p.ID] = true
	}
	assert.True(t, seen[first.ID] && seen[second.ID] && seen[third.ID])

	paid := enums.PayoutStatusPaid
	filtered, err := h.svc.ListPayouts(ctx, ListPayoutsInput{Filters: PayoutFilters{Status: &paid}})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, second.ID, filtered.Items[0].ID)

	bySupplier, err := h.svc.ListPayouts(ctx, ListPayoutsInput{Filters: PayoutFilters{SupplierID: &third.SupplierID}})
	require.NoError(t, err)
	require.Len(t, bySupplier.Items, 1)

	_, err = h.svc.ListPayouts(ctx, ListPayoutsInput{Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParsePeriod(t *testing.T) {
	start, end, err := ParsePeriod("2026-09-01", "2026-09-30")
	require.NoError(t, err)
	assert.True(t, start.Equal(periodStart))
	assert.Equal(t, 30, end.Day())
	assert.Equal(t, 23, end.Hour())
	assert.True(t, end.Before(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)))

	start, end, err = ParsePeriod("2026-09-01T00:00:00+02:00", "2026-09-02T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, start.Location())
	assert.Equal(t, 22, start.Hour())
	assert.True(t, end.Equal(time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)))

	for _, tc := range [][2]string{
		{"", "2026-09-30"},
		{"2026-09-01", ""},
		{"september", "2026-09-30"},
		{"2026-09-30", "2026-09-01"},
	} {
		_, _, err := ParsePeriod(tc[0], tc[1])
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%v", tc)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
