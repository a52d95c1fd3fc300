package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/outbox/payloads"
)

const (
	defaultLowStockScanLimit = 500
	lowStockAlertWindow      = 24 * time.Hour
)

type lowStockReader interface {
	ListLowStock(ctx context.Context, limit int) ([]models.Product, error)
}

// LowStockJobParams configure the low stock scan.
type LowStockJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Products lowStockReader
	Outbox   outboxEmitter
	Limit    int
}

// NewLowStockJob builds the job that alerts on products at or below their
// stock threshold, at most once per product per day.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("low stock reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultLowStockScanLimit
	}
	return &lowStockJob{
		logg:     params.Logger,
		db:       params.DB,
		products: params.Products,
		outbox:   params.Outbox,
		limit:    limit,
		now:      time.Now,
	}, nil
}

type lowStockJob struct {
	logg     *logger.Logger
	db       txRunner
	products lowStockReader
	outbox   outboxEmitter
	limit    int
	now      func() time.Time
}

func (j *lowStockJob) Name() string { return "low-stock-scan" }

func (j *lowStockJob) Run(ctx context.Context) error {
	products, err := j.products.ListLowStock(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("query low stock products: %w", err)
	}

	var errs error
	alerted := 0
	for _, product := range products {
		emitted, err := j.alert(ctx, product)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("alert product %s: %w", product.SKU, err))
			continue
		}
		if emitted {
			alerted++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"low_stock": len(products),
		"alerted":   alerted,
	})
	j.logg.Info(logCtx, "low stock scan complete")
	return errs
}

func (j *lowStockJob) alert(ctx context.Context, product models.Product) (bool, error) {
	var emitted bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.outbox.EmitOnce(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLowStockDetected,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			OccurredAt:    j.now().UTC(),
			Data: payloads.LowStockDetectedEvent{
				ProductID:      product.ID,
				SKU:            product.SKU,
				Title:          product.Title,
				Stock:          product.Stock,
				StockThreshold: product.StockThreshold,
			},
		}, lowStockAlertWindow)
		emitted = ok
		return err
	})
	return emitted, err
}
