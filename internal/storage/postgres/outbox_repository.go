package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

const (
	defaultOutboxBatch = 100

	outboxPending = "pending"
	outboxSent    = "sent"
	outboxFailed  = "failed"
)

type outboxRepository struct {
	store *Store
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{store: store}
}

// Enqueue ставит событие заказа в очередь публикации.
func (r *outboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if err := msg.Validate(); err != nil {
		return domain.OutboxMessage{}, err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	enqueuedAt := time.Now().UTC()
	if _, err := r.store.DB().ExecContext(ctx, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,0,$7,$7)
	`, msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, outboxPending, enqueuedAt); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue %s for %s: %w", msg.EventType, msg.AggregateKey(), err)
	}
	return msg, nil
}

// PullPending отдаёт batch в порядке постановки, поэтому события одного заказа
// приходят воркеру в том порядке, в каком заказ их породил.
func (r *outboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultOutboxBatch
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.DB().QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
	`, outboxPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending outbox messages: %w", err)
	}
	defer rows.Close()

	batch := make([]domain.OutboxMessage, 0, limit)
	for rows.Next() {
		var msg domain.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		batch = append(batch, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox messages: %w", err)
	}
	return batch, nil
}

func (r *outboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	err := r.store.DB().QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(created_at) FROM outbox_messages WHERE status = $1
	`, outboxPending).Scan(&stats.PendingCount, &oldest)
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox backlog: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}
	return stats, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.settle(ctx, id, outboxSent)
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.settle(ctx, id, outboxFailed)
}

// settle переводит только pending-сообщение: повторная отметка уже
// опубликованного события возвращает ErrOutboxPublish.
func (r *outboxRepository) settle(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.DB().ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = $2, attempt_count = attempt_count + 1, updated_at = $3
		WHERE id = $1 AND status = $4
	`, id, status, time.Now().UTC(), outboxPending)
	if err != nil {
		return fmt.Errorf("settle outbox message %s as %s: %w", id, status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("settle outbox message %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: message %s is not pending", domain.ErrOutboxPublish, id)
	}
	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
