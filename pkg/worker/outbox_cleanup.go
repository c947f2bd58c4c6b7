package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/patient-api/internal/repository"
	"github.com/jwalitptl/patient-api/pkg/logger"
	"github.com/jwalitptl/patient-api/pkg/metrics"
)

// OutboxCleanupWorker purges published events older than the retention.
type OutboxCleanupWorker struct {
	repo      repository.OutboxRepository
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewOutboxCleanupWorker(
	repo repository.OutboxRepository,
	retention, interval time.Duration,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxCleanupWorker {
	return &OutboxCleanupWorker{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error(err, "Failed to purge processed outbox events")
			}
		}
	}
}

func (w *OutboxCleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention).UTC()
	n, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.metrics.OutboxEventsPurged.Add(float64(n))
		w.logger.Debug("Purged processed outbox events", "count", n, "before", cutoff.Format(time.RFC3339))
	}
	return n, nil
}
