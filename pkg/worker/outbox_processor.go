package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
	"github.com/jwalitptl/patient-api/pkg/circuitbreaker"
	"github.com/jwalitptl/patient-api/pkg/logger"
	"github.com/jwalitptl/patient-api/pkg/messaging"
	"github.com/jwalitptl/patient-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts is how many times one batch tries to publish an event.
	RetryAttempts int
	RetryDelay    time.Duration
	// MaxRetries is how many batches may fail an event before it is
	// marked FAILED for good. Between batches the wait doubles from
	// RetryDelay up to MaxBackoff.
	MaxRetries    int
	MaxBackoff    time.Duration
	// ClaimLease is how long a claimed event stays reserved. It must
	// outlast a batch; an event still PROCESSING after it is claimed again.
	ClaimLease    time.Duration
	ChannelPrefix string
}

// statusWriteTimeout bounds the status writes that still run after the
// poll context is cancelled.
const statusWriteTimeout = 5 * time.Second

func (c OutboxProcessorConfig) validate() error {
	if c.BatchSize <= 0 {
		return errors.New("BatchSize must be greater than 0")
	}
	if c.PollInterval <= 0 {
		return errors.New("PollInterval must be greater than 0")
	}
	if c.RetryAttempts <= 0 {
		return errors.New("RetryAttempts must be greater than 0")
	}
	if c.RetryDelay <= 0 {
		return errors.New("RetryDelay must be greater than 0")
	}
	if c.MaxRetries <= 0 {
		return errors.New("MaxRetries must be greater than 0")
	}
	return nil
}

// OutboxProcessor relays outbox events to the broker.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 10 * time.Minute
	}
	if config.ClaimLease <= 0 {
		config.ClaimLease = 5 * time.Minute
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor",
		"batch_size", p.config.BatchSize,
		"poll_interval", p.config.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch claims one batch and publishes it. It returns how many
// events were published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize, p.config.ClaimLease)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_pending", "error").Inc()
		return 0, fmt.Errorf("failed to claim pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_pending", "success").Inc()
	p.metrics.OutboxBatchSize.Set(float64(len(events)))

	published := 0
	for _, event := range events {
		if ctx.Err() != nil {
			p.release(ctx, event, ctx.Err(), p.now())
			continue
		}
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType,
				"retry_count", event.RetryCount)
			continue
		}
		published++
	}

	return published, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	msg := messaging.Message{
		ID:         event.ID.String(),
		Type:       event.EventType,
		Payload:    event.Payload,
		OccurredAt: event.CreatedAt,
	}
	channel := messaging.Channel(p.config.ChannelPrefix, event.EventType)

	attempt := 0
	err := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func() error {
		if attempt > 0 {
			p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		}
		attempt++

		start := p.now()
		err := p.broker.Publish(ctx, channel, msg)
		p.metrics.BrokerPublishLatency.Observe(p.now().Sub(start).Seconds())
		if err != nil {
			p.metrics.BrokerPublishes.WithLabelValues("error").Inc()
			return err
		}
		p.metrics.BrokerPublishes.WithLabelValues("success").Inc()
		return nil
	})

	switch {
	case err == nil:
	case ctx.Err() != nil:
		// Shutting down; hand the event straight back.
		p.release(ctx, event, err, p.now())
		return err
	case errors.Is(err, circuitbreaker.ErrOpen):
		// The broker was never tried, so this is not a failed attempt.
		p.release(ctx, event, err, p.now().Add(p.backoff(event.RetryCount)))
		return err
	default:
		p.markFailed(ctx, event, err)
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	wctx, cancel := writeContext(ctx)
	defer cancel()
	if err := p.repo.MarkProcessed(wctx, event.ID); err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("mark_processed", "error").Inc()
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("mark_processed", "success").Inc()
	return nil
}

// release returns a claimed event to PENDING without counting an attempt.
func (p *OutboxProcessor) release(ctx context.Context, event *model.OutboxEvent, cause error, retryAt time.Time) {
	wctx, cancel := writeContext(ctx)
	defer cancel()

	p.metrics.OutboxEventsRescheduled.Inc()
	if err := p.repo.Release(wctx, event.ID, cause.Error(), retryAt.UTC()); err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("release", "error").Inc()
		p.logger.Error(err, "Failed to release event", "event_id", event.ID.String())
		return
	}
	p.metrics.DatabaseOperations.WithLabelValues("release", "success").Inc()
}

// markFailed reschedules the event with backoff, or gives up once it has
// failed MaxRetries batches.
func (p *OutboxProcessor) markFailed(ctx context.Context, event *model.OutboxEvent, cause error) {
	var retryAt *time.Time
	if event.RetryCount+1 < p.config.MaxRetries {
		at := p.now().Add(p.backoff(event.RetryCount)).UTC()
		retryAt = &at
		p.metrics.OutboxEventsRescheduled.Inc()
	} else {
		p.metrics.OutboxEventsFailed.Inc()
	}

	wctx, cancel := writeContext(ctx)
	defer cancel()
	if err := p.repo.MarkFailed(wctx, event.ID, cause.Error(), retryAt); err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("mark_failed", "error").Inc()
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return
	}
	p.metrics.DatabaseOperations.WithLabelValues("mark_failed", "success").Inc()
}

func (p *OutboxProcessor) backoff(retryCount int) time.Duration {
	d := p.config.RetryDelay
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= p.config.MaxBackoff {
			return p.config.MaxBackoff
		}
	}
	return d
}

// writeContext keeps status writes alive past shutdown so a claimed event
// is not left to wait out its lease.
func writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
}

// retry stops early when ctx is done or the breaker is open.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	return err
}
