package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/metrics"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

// Postgres keeps microseconds; consecutive movements of one product are spaced at
// least this far apart so creation order is total.
const movementTimeResolution = time.Microsecond

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the stock ledger engine. It is the only writer of products.stock.
type Service interface {
	ApplyMovement(ctx context.Context, input ApplyMovementInput) (*models.StockMovement, error)
	ApplyMovementTx(ctx context.Context, tx *gorm.DB, input ApplyMovementInput) (*models.StockMovement, error)
	ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[MovementDTO], error)
	Replay(ctx context.Context, productID uuid.UUID) (*ReplayReport, error)
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Logger  *logger.Logger
	Metrics *metrics.LedgerMetrics
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// NewService wires the ledger engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		logg:    logg,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) ApplyMovement(ctx context.Context, input ApplyMovementInput) (*models.StockMovement, error) {
	var movement *models.StockMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		movement, err = s.ApplyMovementTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// ApplyMovementTx locks the product, moves its stock with a compare-and-swap and
// appends the ledger row, all inside tx.
func (s *service) ApplyMovementTx(ctx context.Context, tx *gorm.DB, input ApplyMovementInput) (*models.StockMovement, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidMovementType, "unknown movement type %q", input.Type)
	}
	delta, err := input.Type.SignedDelta(input.Quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidQuantity, err, "invalid movement quantity")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	repo := s.repo.WithTx(tx)
	product, err := repo.LockProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
	}

	before := product.Stock
	after := before + delta

	createdAt, err := s.nextMovementTime(ctx, repo, product.ID)
	if err != nil {
		return nil, err
	}

	swapped, err := repo.CompareAndSwapStock(ctx, product.ID, before, after)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product stock")
	}
	if !swapped {
		s.metrics.IncConflict()
		return nil, pkgerrors.New(pkgerrors.CodeConcurrentConflict, "product stock changed concurrently").
			WithDetails(map[string]any{"product_id": product.ID, "expected_stock": before})
	}

	movement := &models.StockMovement{
		ProductID:   product.ID,
		Type:        input.Type,
		Quantity:    input.Quantity,
		StockBefore: before,
		StockAfter:  after,
		OrderID:     input.OrderID,
		SupplierID:  input.SupplierID,
		UnitCost:    input.UnitCost,
		Reason:      input.Reason,
		Reference:   input.Reference,
		CreatedAt:   createdAt,
		CreatedBy:   input.CreatedBy,
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append stock movement")
	}

	s.metrics.ObserveMovement(string(input.Type), delta)
	logCtx := s.logg.WithProductID(ctx, product.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"movement_id":   movement.ID.String(),
		"movement_type": string(input.Type),
		"stock_before":  before,
		"stock_after":   after,
	})
	if after < 0 {
		s.metrics.IncNegativeStock()
		s.logg.Warn(logCtx, "stock went negative")
	} else {
		s.logg.Debug(logCtx, "stock movement applied")
	}

	return movement, nil
}

// nextMovementTime returns now, nudged past the product's latest movement so replay
// order never depends on timestamp ties.
func (s *service) nextMovementTime(ctx context.Context, repo Repository, productID uuid.UUID) (time.Time, error) {
	now := s.now().UTC().Truncate(movementTimeResolution)
	latest, err := repo.LatestMovementAt(ctx, productID)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest movement")
	}
	if latest != nil && !now.After(*latest) {
		now = latest.UTC().Truncate(movementTimeResolution).Add(movementTimeResolution)
	}
	return now, nil
}

func (s *service) ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[MovementDTO], error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	rows, err := s.repo.ListMovements(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}
	dtos := make([]MovementDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewMovementDTO(row))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(m MovementDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return &page, nil
}

// Replay re-derives stock from the ledger and compares it with products.stock.
func (s *service) Replay(ctx context.Context, productID uuid.UUID) (*ReplayReport, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	var report *ReplayReport
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		movements, err := repo.ListMovementsForReplay(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load movements")
		}
		report = ReplayMovements(product.ID, product.Stock, movements)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent() {
		logCtx := s.logg.WithProductID(ctx, productID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"drift":  report.Drift,
			"breaks": len(report.Breaks),
		})
		s.logg.Warn(logCtx, "ledger replay does not match stock")
	}
	return report, nil
}

// ReplayMovements folds movements (oldest first) starting from the first row's
// stock_before. A product with no movements replays to zero.
func ReplayMovements(productID uuid.UUID, currentStock int, movements []models.StockMovement) *ReplayReport {
	report := &ReplayReport{
		ProductID:     productID,
		MovementCount: len(movements),
		CurrentStock:  currentStock,
		Breaks:        []ReplayBreak{},
	}
	if len(movements) > 0 {
		report.StartingStock = movements[0].StockBefore
	}

	running := report.StartingStock
	for _, m := range movements {
		delta, err := m.Type.SignedDelta(m.Quantity)
		ownDeltaOK := err == nil && m.StockAfter == m.StockBefore+delta
		if err != nil {
			// unreadable row: trust its recorded stock_after so one bad row is one break
			delta = m.StockAfter - m.StockBefore
		}
		continuityOK := m.StockBefore == running

		if !ownDeltaOK || !continuityOK {
			report.Breaks = append(report.Breaks, ReplayBreak{
				MovementID:       m.ID,
				ExpectedBefore:   running,
				StockBefore:      m.StockBefore,
				ExpectedAfter:    running + delta,
				StockAfter:       m.StockAfter,
				InvalidOwnDelta:  !ownDeltaOK,
				BrokenContinuity: !continuityOK,
			})
		}
		running += delta
	}

	report.ReplayedStock = running
	report.Drift = currentStock - running
	return report
}

// ValidateManualType rejects movement types that only order commands may produce.
func ValidateManualType(raw string) (enums.StockMovementType, error) {
	typ, err := enums.ParseStockMovementType(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInvalidMovementType, err, "unknown movement type")
	}
	if !typ.IsManual() {
		return "", pkgerrors.Newf(pkgerrors.CodeInvalidMovementType, "%s movements are recorded by order commands", typ)
	}
	return typ, nil
}
