package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
	defaultDLQAttempts     = 10
)

// OutboxRetentionJobParams configures outbox cleanup. MinAttempts should
// match the publisher's max attempts so rows it gave up on are swept with
// the published ones. DLQ is optional.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Repository   outboxRetentionRepo
	DLQ          dlqRetentionRepo
	Retention    time.Duration
	DLQRetention time.Duration
	MinAttempts  int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	events       outboxRetentionRepo
	dlq          dlqRetentionRepo
	retention    time.Duration
	dlqRetention time.Duration
	minAttempts  int
	now          func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		events:       params.Repository,
		dlq:          params.DLQ,
		retention:    params.Retention,
		dlqRetention: params.DLQRetention,
		minAttempts:  params.MinAttempts,
		now:          time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.dlqRetention <= 0 {
		job.dlqRetention = defaultDLQRetention
	}
	if job.minAttempts <= 0 {
		job.minAttempts = defaultDLQAttempts
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox_retention" }

// Run sweeps both tables in one transaction.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	eventCutoff := now.Add(-j.retention)
	dlqCutoff := now.Add(-j.dlqRetention)

	var events, letters int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if events, err = j.events.DeletePublishedBefore(ctx, tx, eventCutoff, j.minAttempts); err != nil {
			return fmt.Errorf("delete outbox events: %w", err)
		}
		if j.dlq == nil {
			return nil
		}
		if letters, err = j.dlq.DeleteFailedBefore(ctx, tx, dlqCutoff); err != nil {
			return fmt.Errorf("delete dead letters: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"event_cutoff":   eventCutoff,
		"dlq_cutoff":     dlqCutoff,
		"min_attempts":   j.minAttempts,
		"events_deleted": events,
		"dlq_deleted":    letters,
	}), "outbox retention sweep complete")
	return nil
}
