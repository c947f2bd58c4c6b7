package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	event.Status = string(model.OutboxStatusPending)

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		[]byte(event.Payload),
		event.Status,
		event.RetryCount,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// ClaimPending moves up to limit due events to PROCESSING and returns them.
// The claim is a lease: retry_at is pushed lease into the future, and rows
// still PROCESSING past it (the relay died or could not record the outcome)
// are claimed again. SKIP LOCKED lets several relays poll the same table.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET status = $1, retry_at = NOW() + ($2::bigint * INTERVAL '1 millisecond'), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE (status = $3 AND (retry_at IS NULL OR retry_at <= NOW()))
				OR (status = $1 AND retry_at <= NOW())
			ORDER BY created_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_type, payload, status, error_message, retry_count,
			retry_at, processed_at, created_at, updated_at
	`

	events := make([]*model.OutboxEvent, 0)
	err := r.db.SelectContext(ctx, &events, query,
		string(model.OutboxStatusProcessing),
		lease.Milliseconds(),
		string(model.OutboxStatusPending),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = $1, processed_at = $2, updated_at = $2, error_message = NULL
		WHERE id = $3
	`
	res, err := r.db.ExecContext(ctx, query, string(model.OutboxStatusProcessed), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark event %s processed: %w", id, err)
	}
	return expectOneRow(res)
}

// MarkFailed records a publish failure. A non-nil retryAt puts the event
// back in the queue; nil gives up on it.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	status := model.OutboxStatusFailed
	if retryAt != nil {
		status = model.OutboxStatusPending
	}

	query := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, retry_at = $3,
			retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, string(status), errMsg, retryAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark event %s failed: %w", id, err)
	}
	return expectOneRow(res)
}

func (r *outboxRepository) Release(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	query := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, retry_at = $3, updated_at = NOW()
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, string(model.OutboxStatusPending), errMsg, retryAt, id)
	if err != nil {
		return fmt.Errorf("failed to release event %s: %w", id, err)
	}
	return expectOneRow(res)
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM outbox_events WHERE status = $1 AND processed_at < $2`
	res, err := r.db.ExecContext(ctx, query, string(model.OutboxStatusProcessed), before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}
	return res.RowsAffected()
}
