package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/outre-records/inventory-core/pkg/logger"
)

const (
	outboxRetentionDays   = 30
	outboxRetentionBatch  = 1000
	outboxRetentionRounds = 50
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxRetentionRepo
	Retention  int
	BatchSize  int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = outboxRetentionBatch
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      outboxRetentionRepo
	retention int
	batch     int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run deletes published events older than the retention window in batches,
// stopping after outboxRetentionRounds so one cycle stays bounded.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	for round := 0; round < outboxRetentionRounds; round++ {
		rows, err := j.repo.DeletePublishedBefore(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("outbox retention: %w", err)
		}
		deleted += rows
		if rows < int64(j.batch) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
