package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/herovault-backend/pkg/logger"
)

const defaultOutboxRetention = 720 * time.Hour

type OutboxRetentionJobParams struct {
	Logger    *logger.Logger
	Outbox    publishedEventPruner
	DLQ       deadLetterPruner
	Retention time.Duration
}

type publishedEventPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type deadLetterPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes published outbox rows past the retention
// window and dead letters past twice that window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.DLQ == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		outbox:    params.Outbox,
		dlq:       params.DLQ,
		retention: retention,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	outbox    publishedEventPruner
	dlq       deadLetterPruner
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	publishedCutoff := now.Add(-j.retention)
	dlqCutoff := now.Add(-2 * j.retention)

	var err error
	published, pubErr := j.outbox.DeletePublishedBefore(ctx, publishedCutoff)
	if pubErr != nil {
		err = multierr.Append(err, fmt.Errorf("prune published events: %w", pubErr))
	}
	deadLetters, dlqErr := j.dlq.DeleteBefore(ctx, dlqCutoff)
	if dlqErr != nil {
		err = multierr.Append(err, fmt.Errorf("prune dead letters: %w", dlqErr))
	}
	if err != nil {
		return err
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"published_cutoff": publishedCutoff,
		"dlq_cutoff":       dlqCutoff,
		"events_deleted":   published,
		"dlq_deleted":      deadLetters,
	}), "outbox retention cleanup complete")
	return nil
}
