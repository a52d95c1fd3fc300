package settlements

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/outbox/payloads"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service computes settlements and manages the payout lifecycle.
type Service interface {
	ComputeForSupplier(ctx context.Context, supplierID uuid.UUID, periodStart, periodEnd time.Time) (*Settlement, error)
	ComputeAll(ctx context.Context, periodStart, periodEnd time.Time) ([]Settlement, error)
	WriteReport(ctx context.Context, w io.Writer, periodStart, periodEnd time.Time) error
	CreatePayout(ctx context.Context, input CreatePayoutInput) (*PayoutDTO, error)
	MarkPaid(ctx context.Context, payoutID uuid.UUID, paymentReference *string) (*PayoutDTO, error)
	DeletePayout(ctx context.Context, payoutID uuid.UUID) error
	GetPayout(ctx context.Context, payoutID uuid.UUID) (*PayoutDTO, error)
	ListPayouts(ctx context.Context, input ListPayoutsInput) (*pagination.Page[PayoutDTO], error)
}

// ServiceParams carries the settlement service dependencies.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Outbox outboxPublisher
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the settlement service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settlements repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   logg,
		now:    func() time.Time { return now().UTC() },
	}, nil
}

func (s *service) ComputeForSupplier(ctx context.Context, supplierID uuid.UUID, periodStart, periodEnd time.Time) (*Settlement, error) {
	if err := validatePeriod(periodStart, periodEnd); err != nil {
		return nil, err
	}
	supplier, err := s.repo.FindSupplier(ctx, supplierID)
	if err != nil {
		return nil, notFoundOr(err, "supplier")
	}
	items, err := s.repo.ListSettlementItems(ctx, &supplier.ID, periodStart, periodEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement items")
	}
	settlement := ComputePeriodSettlement(*supplier, periodStart, periodEnd, items)
	return &settlement, nil
}

// ComputeAll settles every supplier for the period, including those with no sales.
func (s *service) ComputeAll(ctx context.Context, periodStart, periodEnd time.Time) ([]Settlement, error) {
	if err := validatePeriod(periodStart, periodEnd); err != nil {
		return nil, err
	}
	suppliers, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	items, err := s.repo.ListSettlementItems(ctx, nil, periodStart, periodEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement items")
	}

	bySupplier := make(map[uuid.UUID][]models.OrderItem, len(suppliers))
	for _, item := range items {
		bySupplier[*item.SupplierID] = append(bySupplier[*item.SupplierID], item)
	}
	out := make([]Settlement, 0, len(suppliers))
	for _, supplier := range suppliers {
		out = append(out, ComputePeriodSettlement(supplier, periodStart, periodEnd, bySupplier[supplier.ID]))
	}
	return out, nil
}

func (s *service) WriteReport(ctx context.Context, w io.Writer, periodStart, periodEnd time.Time) error {
	rows, err := s.ComputeAll(ctx, periodStart, periodEnd)
	if err != nil {
		return err
	}
	if err := WriteSettlementReport(w, periodStart, periodEnd, rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render settlement report")
	}
	return nil
}

// CreatePayout stores the caller's amounts as a pending payout. Amounts are not
// recomputed.
func (s *service) CreatePayout(ctx context.Context, input CreatePayoutInput) (*PayoutDTO, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier_id is required")
	}
	if err := validatePeriod(input.PeriodStart, input.PeriodEnd); err != nil {
		return nil, err
	}

	var created *models.SupplierPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindSupplier(ctx, input.SupplierID); err != nil {
			return notFoundOr(err, "supplier")
		}
		payout, err := repo.CreatePayout(ctx, &models.SupplierPayout{
			SupplierID:       input.SupplierID,
			PeriodStart:      input.PeriodStart.UTC(),
			PeriodEnd:        input.PeriodEnd.UTC(),
			GrossSales:       input.GrossSales.Round(2),
			CommissionAmount: input.CommissionAmount.Round(2),
			PayoutAmount:     input.PayoutAmount.Round(2),
			Status:           enums.PayoutStatusPending,
			Notes:            input.Notes,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert payout")
		}
		created = payout
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithPayoutID(ctx, created.ID.String())
	s.logg.Info(s.logg.WithField(logCtx, "supplier_id", created.SupplierID.String()), "payout created")
	dto := NewPayoutDTO(*created)
	return &dto, nil
}

// MarkPaid settles a pending payout and queues payout_paid for invoice issuance.
func (s *service) MarkPaid(ctx context.Context, payoutID uuid.UUID, paymentReference *string) (*PayoutDTO, error) {
	if paymentReference != nil {
		ref := strings.TrimSpace(*paymentReference)
		paymentReference = &ref
		if ref == "" {
			paymentReference = nil
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := repo.FindPayout(ctx, payoutID)
		if err != nil {
			return notFoundOr(err, "payout")
		}
		if !payout.Status.CanTransitionTo(enums.PayoutStatusPaid) {
			if payout.Status == enums.PayoutStatusPaid {
				return alreadyPaid(payout)
			}
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "payout in status %q cannot be marked paid", payout.Status)
		}

		now := s.now()
		flipped, err := repo.MarkPaid(ctx, payout.ID, now, paymentReference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payout paid")
		}
		if !flipped {
			return alreadyPaid(payout)
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPayoutPaid,
			AggregateType: enums.AggregateSupplierPayout,
			AggregateID:   payout.ID,
			OccurredAt:    now,
			Data: payloads.PayoutPaidEvent{
				PayoutID:         payout.ID,
				SupplierID:       payout.SupplierID,
				PeriodStart:      payout.PeriodStart,
				PeriodEnd:        payout.PeriodEnd,
				GrossSales:       payout.GrossSales,
				CommissionAmount: payout.CommissionAmount,
				PayoutAmount:     payout.PayoutAmount,
				PaymentReference: paymentReference,
				PaidAt:           now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payout paid")
		}
		s.logg.Info(s.logg.WithPayoutID(ctx, payout.ID.String()), "payout marked paid")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPayout(ctx, payoutID)
}

// DeletePayout removes the payout whatever its status. Deleting a paid payout is
// logged as a warning and the removed row is kept in a payout_deleted event.
func (s *service) DeletePayout(ctx context.Context, payoutID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := repo.FindPayout(ctx, payoutID)
		if err != nil {
			return notFoundOr(err, "payout")
		}
		deleted, err := repo.DeletePayout(ctx, payout.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payout")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}

		now := s.now()
		event := outbox.DomainEvent{
			EventType:     enums.EventPayoutDeleted,
			AggregateType: enums.AggregateSupplierPayout,
			AggregateID:   payout.ID,
			OccurredAt:    now,
			Data: payloads.PayoutDeletedEvent{
				PayoutID:     payout.ID,
				SupplierID:   payout.SupplierID,
				Status:       payout.Status,
				PayoutAmount: payout.PayoutAmount,
				PaidAt:       payout.PaidAt,
				DeletedBy:    outbox.ActorID(ctx),
				DeletedAt:    now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payout deleted")
		}

		logCtx := s.logg.WithPayoutID(ctx, payout.ID.String())
		logCtx = s.logg.WithField(logCtx, "payout_status", string(payout.Status))
		if payout.Status == enums.PayoutStatusPaid {
			s.logg.Warn(logCtx, "paid payout deleted")
		} else {
			s.logg.Info(logCtx, "payout deleted")
		}
		return nil
	})
}

func (s *service) GetPayout(ctx context.Context, payoutID uuid.UUID) (*PayoutDTO, error) {
	payout, err := s.repo.FindPayout(ctx, payoutID)
	if err != nil {
		return nil, notFoundOr(err, "payout")
	}
	dto := NewPayoutDTO(*payout)
	return &dto, nil
}

func (s *service) ListPayouts(ctx context.Context, input ListPayoutsInput) (*pagination.Page[PayoutDTO], error) {
	params := pagination.Params{Limit: pagination.NormalizeLimit(input.Limit), Cursor: input.Cursor}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListPayouts(ctx, params, input.Filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	dtos := make([]PayoutDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewPayoutDTO(row))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(p PayoutDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

func validatePeriod(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "period_start and period_end are required")
	}
	if end.Before(start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "period_end must not be before period_start")
	}
	return nil
}

func alreadyPaid(payout *models.SupplierPayout) error {
	return pkgerrors.New(pkgerrors.CodePayoutAlreadyPaid, "payout is already paid").
		WithDetails(map[string]any{"payout_id": payout.ID, "paid_at": payout.PaidAt})
}

func notFoundOr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", entity)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}
