package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	"github.com/outre-records/inventory-core/pkg/logger"
)

const currentEnvelopeVersion = 1

type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit queues event inside tx so it commits or rolls back with the change it
// describes.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !event.EventType.IsValid() {
		return fmt.Errorf("unknown outbox event type %q", event.EventType)
	}
	if !event.AggregateType.IsValid() {
		return fmt.Errorf("unknown outbox aggregate type %q", event.AggregateType)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event.EventType, err)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.Actor == nil {
		event.Actor = ActorFromContext(ctx)
	}
	if event.Version == 0 {
		event.Version = currentEnvelopeVersion
	}
	envelope := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	row := models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       json.RawMessage(payload),
	}
	if err := s.repo.Insert(tx, &row); err != nil {
		return err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":       envelope.EventID,
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
		})
		s.logg.Debug(logCtx, "outbox event queued")
	}
	return nil
}

// EmitOnce skips the event when one of the same type for the same aggregate
// was queued within window. Scheduled scans use it to avoid repeated alerts.
func (s *Service) EmitOnce(ctx context.Context, tx *gorm.DB, event DomainEvent, window time.Duration) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	since := time.Now().UTC().Add(-window)
	exists, err := s.repo.ExistsSinceTx(tx, event.EventType, event.AggregateID, since)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.Emit(ctx, tx, event); err != nil {
		return false, err
	}
	return true, nil
}
