package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
)

const maxLastErrorLen = 1024

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Repository) Insert(tx *gorm.DB, event *models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(event).Error
}

// FetchUnpublishedForPublish claims up to limit due rows. SKIP LOCKED lets
// several publisher replicas drain the table without double sends.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("published_at IS NULL").
		Where("attempt_count < ?", maxAttempts).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", r.now()).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": r.now(),
			"last_error":   nil,
		}).Error
}

// MarkFailedTx records a retryable failure and schedules the next attempt.
func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error, retryAfter time.Duration) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":      truncateError(err),
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"next_attempt_at": r.now().Add(retryAfter),
		}).Error
}

// MarkTerminalTx parks the row so it is never fetched again; the DLQ keeps
// the copy operators act on.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    truncateError(err),
			"attempt_count": terminalAttempts,
		}).Error
}

func (r *Repository) ExistsSinceTx(tx *gorm.DB, eventType enums.OutboxEventType, aggregateID uuid.UUID, since time.Time) (bool, error) {
	var count int64
	err := tx.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ? AND created_at >= ?", eventType, aggregateID, since).
		Count(&count).Error
	return count > 0, err
}

// DeletePublishedBefore removes up to limit published rows older than cutoff.
func (r *Repository) DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	ids := r.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Select("id").
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Order("published_at ASC").
		Limit(limit)
	res := r.db.WithContext(ctx).Where("id IN (?)", ids).Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func truncateError(err error) *string {
	if err == nil {
		return nil
	}
	msg := clipError(err.Error())
	return &msg
}

// clipError caps msg at maxLastErrorLen bytes on a rune boundary.
func clipError(msg string) string {
	if len(msg) <= maxLastErrorLen {
		return msg
	}
	cut := maxLastErrorLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
