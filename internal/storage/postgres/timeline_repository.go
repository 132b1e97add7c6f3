package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

type timelineRepository struct {
	store *Store
}

// NewTimelineRepository создаёт PostgreSQL-реализацию TimelineRepository.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{store: store}
}

// Append пишет событие только для существующего заказа: история без заказа бессмысленна.
func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.DB().ExecContext(ctx, `
		INSERT INTO timeline_events (order_id, type, reason, occurred)
		SELECT id, $2, $3, $4 FROM orders WHERE id = $1
	`, event.OrderID, event.Type, event.Reason, event.Occurred)
	if err != nil {
		return fmt.Errorf("append %s event for order %s: %w", event.Type, event.OrderID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// List возвращает историю заказа; фильтр по типам передаётся массивом,
// пустой массив отключает фильтр.
func (r *timelineRepository) List(ctx context.Context, orderID string, eventTypes ...string) ([]domain.TimelineEvent, error) {
	if err := domain.ValidateEventTypes(eventTypes); err != nil {
		return nil, err
	}
	if eventTypes == nil {
		eventTypes = []string{}
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.DB().QueryContext(ctx, `
		SELECT order_id, type, reason, occurred
		FROM timeline_events
		WHERE order_id = $1
		  AND (cardinality($2::text[]) = 0 OR type = ANY($2::text[]))
		ORDER BY occurred, id
	`, orderID, eventTypes)
	if err != nil {
		return nil, fmt.Errorf("list timeline for order %s: %w", orderID, err)
	}
	defer rows.Close()

	return scanTimeline(rows)
}

func scanTimeline(rows *sql.Rows) ([]domain.TimelineEvent, error) {
	history := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var event domain.TimelineEvent
		if err := rows.Scan(&event.OrderID, &event.Type, &event.Reason, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		history = append(history, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline events: %w", err)
	}
	return history, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
