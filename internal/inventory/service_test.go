package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/dbtest"
	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/metrics"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(conn),
		Tx:      client,
		Metrics: metrics.NewLedgerMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return svc, conn
}

func TestApplyMovementSaleRecordsBeforeAndAfter(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.Product(t, conn, 10, nil)

	movement, err := svc.ApplyMovement(context.Background(), ApplyMovementInput{
		ProductID: product.ID,
		Type:      enums.MovementSale,
		Quantity:  3,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.MovementSale, movement.Type)
	assert.Equal(t, 3, movement.Quantity)
	assert.Equal(t, 10, movement.StockBefore)
	assert.Equal(t, 7, movement.StockAfter)
	assert.Equal(t, 7, dbtest.Reload[models.Product](t, conn, product.ID).Stock)
}

func TestApplyMovementDirections(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.Product(t, conn, 5, nil)
	ctx := context.Background()

	steps := []struct {
		typ      enums.StockMovementType
		quantity int
		want     int
	}{
		{enums.MovementPurchase, 4, 9},
		{enums.MovementLoss, 1, 8},
		{enums.MovementConsignmentIn, 2, 10},
		{enums.MovementConsignmentOut, 3, 7},
		{enums.MovementReturn, 1, 8},
		{enums.MovementAdjustment, -5, 3},
		{enums.MovementSaleAdjustment, 2, 5},
		{enums.MovementSaleReversal, 1, 6},
	}
	for _, step := range steps {
		m, err := svc.ApplyMovement(ctx, ApplyMovementInput{ProductID: product.ID, Type: step.typ, Quantity: step.quantity})
		require.NoError(t, err, step.typ)
		assert.Equal(t, step.want, m.StockAfter, step.typ)
	}
	assert.Equal(t, 6, dbtest.Reload[models.Product](t, conn, product.ID).Stock)
}

func TestApplyMovementRejectsUnknownType(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.Product(t, conn, 10, nil)

	_, err := svc.ApplyMovement(context.Background(), ApplyMovementInput{
		ProductID: product.ID,
		Type:      enums.StockMovementType("gift"),
		Quantity:  1,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidMovementType))

	var count int64
	require.NoError(t, conn.Model(&models.StockMovement{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApplyMovementRejectsBadQuantity(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.Product(t, conn, 10, nil)

	for _, in := range []ApplyMovementInput{
		{ProductID: product.ID, Type: enums.MovementSale, Quantity: 0},
		{ProductID: product.ID, Type: enums.MovementSale, Quantity: -2},
		{ProductID: product.ID, Type: enums.MovementAdjustment, Quantity: 0},
	} {
		_, err := svc.ApplyMovement(context.Background(), in)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity), "%+v", in)
	}
	assert.Equal(t, 10, dbtest.Reload[models.Product](t, conn, product.ID).Stock)
}

func TestApplyMovementUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ApplyMovement(context.Background(), ApplyMovementInput{
		ProductID: uuid.New(),
		Type:      enums.MovementPurchase,
		Quantity:  1,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApplyMovementAllowsNegativeStock(t *testing.T) {
	client, conn := dbtest.Client(t)
	reg := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(reg)
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), Tx: client, Metrics: ledgerMetrics})
	require.NoError(t, err)
	product := dbtest.Product(t, conn, 1, nil)

	m, err := svc.ApplyMovement(context.Background(), ApplyMovementInput{
		ProductID: product.ID,
		Type:      enums.MovementSale,
		Quantity:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, -2, m.StockAfter)
	assert.Equal(t, -2, dbtest.Reload[models.Product](t, conn, product.ID).Stock)

	assert.Equal(t, 1.0, gatherCounter(t, reg, "invcore_ledger_negative_stock_total"))
}

func gatherCounter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

type conflictRepo struct {
	Repository
}

func (r conflictRepo) WithTx(tx *gorm.DB) Repository {
	return conflictRepo{Repository: r.Repository.WithTx(tx)}
}

func (conflictRepo) CompareAndSwapStock(context.Context, uuid.UUID, int, int) (bool, error) {
	return false, nil
}

func TestApplyMovementReportsConcurrentConflict(t *testing.T) {
	client, conn := dbtest.Client(t)
	svc, err := NewService(ServiceParams{Repo: conflictRepo{NewRepository(conn)}, Tx: client})
	require.NoError(t, err)
	product := dbtest.Product(t, conn, 10, nil)

	_, err = svc.ApplyMovement(context.Background(), ApplyMovementInput{
		ProductID: product.ID,
		Type:      enums.MovementSale,
		Quantity:  1,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConcurrentConflict))
	assert.True(t, pkgerrors.MetadataFor(pkgerrors.CodeConcurrentConflict).Retryable)

	var count int64
	require.NoError(t, conn.Model(&models.StockMovement{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConcurrentSalesNeverLoseUpdates(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.Product(t, conn, 20, nil)

	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyMovement(context.Background(), ApplyMovementInput{
				ProductID: product.ID,
				Type:      enums.MovementSale,
				Quantity:  1,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 20-workers, dbtest.Reload[models.Product](t, conn, product.ID).Stock)
	report, err := svc.Replay(context.Background(), product.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent(), "%+v", report)
	assert.Equal(t, workers, report.MovementCount)
}

func TestReplayReproducesCurrentStock(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.Product(t, conn, 10, nil)
	ctx := context.Background()

	for _, in := range []ApplyMovementInput{
		{Type: enums.MovementSale, Quantity: 3},
		{Type: enums.MovementSaleReversal, Quantity: 3},
		{Type: enums.MovementPurchase, Quantity: 25},
		{Type: enums.MovementAdjustment, Quantity: -4},
		{Type: enums.MovementLoss, Quantity: 1},
	} {
		in.ProductID = product.ID
		_, err := svc.ApplyMovement(ctx, in)
		require.NoError(t, err)
	}

	report, err := svc.Replay(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, 10, report.StartingStock)
	assert.Equal(t, 30, report.ReplayedStock)
	assert.Equal(t, 30, report.CurrentStock)
}

func TestReplayDetectsDrift(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.Product(t, conn, 10, nil)
	ctx := context.Background()

	_, err := svc.ApplyMovement(ctx, ApplyMovementInput{ProductID: product.ID, Type: enums.MovementSale, Quantity: 2})
	require.NoError(t, err)
	// simulate an out-of-band write that bypassed the ledger
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("stock", 50).Error)

	report, err := svc.Replay(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.Equal(t, 8, report.ReplayedStock)
	assert.Equal(t, 42, report.Drift)
}

func TestReplayMovementsFlagsBrokenRows(t *testing.T) {
	productID := uuid.New()
	movements := []models.StockMovement{
		{ID: uuid.New(), Type: enums.MovementPurchase, Quantity: 5, StockBefore: 0, StockAfter: 5},
		{ID: uuid.New(), Type: enums.MovementSale, Quantity: 2, StockBefore: 5, StockAfter: 4},
		{ID: uuid.New(), Type: enums.MovementLoss, Quantity: 1, StockBefore: 9, StockAfter: 8},
	}

	report := ReplayMovements(productID, 2, movements)
	require.Len(t, report.Breaks, 2)
	assert.True(t, report.Breaks[0].InvalidOwnDelta)
	assert.False(t, report.Breaks[0].BrokenContinuity)
	assert.True(t, report.Breaks[1].BrokenContinuity)
	assert.Equal(t, 2, report.ReplayedStock)
	assert.Zero(t, report.Drift)
	assert.False(t, report.Consistent())
}

func TestMovementTimestampsAreStrictlyOrdered(t *testing.T) {
	client, conn := dbtest.Client(t)
	frozen := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		Repo: NewRepository(conn),
		Tx:   client,
		Now:  func() time.Time { return frozen },
	})
	require.NoError(t, err)
	product := dbtest.Product(t, conn, 0, nil)

	var stamps []time.Time
	for i := 0; i < 3; i++ {
		m, err := svc.ApplyMovement(context.Background(), ApplyMovementInput{ProductID: product.ID, Type: enums.MovementPurchase, Quantity: 1})
		require.NoError(t, err)
		stamps = append(stamps, m.CreatedAt)
	}
	assert.True(t, stamps[0].Equal(frozen))
	assert.True(t, stamps[1].After(stamps[0]))
	assert.True(t, stamps[2].After(stamps[1]))
}

func TestListMovementsPaginatesNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	product := dbtest.Product(t, conn, 0, nil)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := svc.ApplyMovement(ctx, ApplyMovementInput{ProductID: product.ID, Type: enums.MovementPurchase, Quantity: i})
		require.NoError(t, err)
	}

	first, err := svc.ListMovements(ctx, product.ID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.Equal(t, 5, first.Items[0].Quantity)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListMovements(ctx, product.ID, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, 2, second.Items[0].Quantity)
	assert.Equal(t, 1, second.Items[1].Quantity)
	assert.Empty(t, second.NextCursor)

	_, err = svc.ListMovements(ctx, uuid.New(), pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestValidateManualType(t *testing.T) {
	typ, err := ValidateManualType("loss")
	require.NoError(t, err)
	assert.Equal(t, enums.MovementLoss, typ)

	_, err = ValidateManualType("sale")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidMovementType))

	_, err = ValidateManualType("teleport")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidMovementType))
}
