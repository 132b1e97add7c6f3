package order

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// AggregateOrder — тип агрегата в outbox.
const AggregateOrder = "order"

// Event — полезная нагрузка события заказа в outbox.
type Event struct {
	OrderID      string `json:"order_id"`
	UserID       int64  `json:"user_id"`
	RestaurantID int64  `json:"restaurant_id"`
	Status       string `json:"status"`
	TotalPrice   string `json:"total_price"`
	Reason       string `json:"reason,omitempty"`
	OccurredAt   string `json:"ts"`
}

// emit записывает событие в timeline и outbox. Заказ к этому моменту уже сохранён,
// поэтому ошибки только логируются.
func (s *Service) emit(ctx context.Context, record domain.OrderRecord, eventType, reason string) {
	s.appendTimeline(ctx, record, eventType, reason)

	if s.outbox == nil {
		return
	}
	payload, err := json.Marshal(Event{
		OrderID:      record.ID,
		UserID:       record.UserID,
		RestaurantID: record.RestaurantID,
		Status:       string(record.Status),
		TotalPrice:   record.TotalPrice.String(),
		Reason:       reason,
		OccurredAt:   record.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": record.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: AggregateOrder,
		AggregateID:   record.ID,
		EventType:     eventType,
		Payload:       payload,
	}
	if _, err := s.outbox.Enqueue(ctx, msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": record.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
	}
}

func (s *Service) appendTimeline(ctx context.Context, record domain.OrderRecord, eventType, reason string) {
	if s.timeline == nil {
		return
	}
	occurred := record.UpdatedAt
	if occurred.IsZero() {
		occurred = s.now().UTC()
	}
	event := domain.TimelineEvent{
		OrderID:  record.ID,
		Type:     eventType,
		Reason:   reason,
		Occurred: occurred,
	}
	if err := s.timeline.Append(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": record.ID,
			"event":    eventType,
		}).Warn("append timeline event failed")
	}
}
