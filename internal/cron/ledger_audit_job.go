package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/internal/inventory"
	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/outbox/payloads"
)

const (
	defaultAuditBatchSize = 200
	driftAlertWindow      = 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitOnce(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent, window time.Duration) (bool, error)
}

type productScanner interface {
	ListProductIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type ledgerReplayer interface {
	Replay(ctx context.Context, productID uuid.UUID) (*inventory.ReplayReport, error)
}

// LedgerAuditJobParams configure the ledger audit.
type LedgerAuditJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Products  productScanner
	Ledger    ledgerReplayer
	Outbox    outboxEmitter
	BatchSize int
}

// NewLedgerAuditJob builds the job that replays every product's movements and
// reports stock that the ledger no longer explains.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product scanner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultAuditBatchSize
	}
	return &ledgerAuditJob{
		logg:     params.Logger,
		db:       params.DB,
		products: params.Products,
		ledger:   params.Ledger,
		outbox:   params.Outbox,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type ledgerAuditJob struct {
	logg     *logger.Logger
	db       txRunner
	products productScanner
	ledger   ledgerReplayer
	outbox   outboxEmitter
	batch    int
	now      func() time.Time
}

func (j *ledgerAuditJob) Name() string { return "ledger-audit" }

// Run continues past products that fail to replay and returns their errors combined.
func (j *ledgerAuditJob) Run(ctx context.Context) error {
	var (
		errs     error
		after    uuid.UUID
		audited  int
		drifting int
	)
	for {
		ids, err := j.products.ListProductIDsAfter(ctx, after, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list products: %w", err))
		}
		for _, id := range ids {
			ok, err := j.auditProduct(ctx, id)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("audit product %s: %w", id, err))
				continue
			}
			audited++
			if !ok {
				drifting++
			}
		}
		if len(ids) < j.batch {
			break
		}
		after = ids[len(ids)-1]
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"audited":  audited,
		"drifting": drifting,
		"failures": len(multierr.Errors(errs)),
	})
	if drifting > 0 {
		j.logg.Warn(logCtx, "ledger audit found drift")
	} else {
		j.logg.Info(logCtx, "ledger audit complete")
	}
	return errs
}

func (j *ledgerAuditJob) auditProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	report, err := j.ledger.Replay(ctx, productID)
	if err != nil {
		return false, err
	}
	if report.Consistent() {
		return true, nil
	}
	product, err := j.products.FindProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		now := j.now().UTC()
		_, err := j.outbox.EmitOnce(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLedgerDriftDetected,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			OccurredAt:    now,
			Data: payloads.LedgerDriftDetectedEvent{
				ProductID:     product.ID,
				SKU:           product.SKU,
				RecordedStock: report.CurrentStock,
				ReplayedStock: report.ReplayedStock,
				BrokenRows:    len(report.Breaks),
				DetectedAt:    now,
			},
		}, driftAlertWindow)
		return err
	})
	return false, err
}
