package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// DeadLetter — полезная нагрузка сообщения, отправленного в DLQ после исчерпания попыток.
type DeadLetter struct {
	OutboxID       string          `json:"outbox_id"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	PublishError   string          `json:"publish_error"`
	DLQPublishedAt time.Time       `json:"dlq_published_at"`
}

// NewDeadLetter упаковывает сообщение outbox и причину сбоя. Невалидный JSON payload отбрасывается.
func NewDeadLetter(event domain.OutboxMessage, publishErr error, at time.Time) DeadLetter {
	dl := DeadLetter{
		OutboxID:       event.ID,
		AggregateType:  event.AggregateType,
		AggregateID:    event.AggregateID,
		EventType:      event.EventType,
		DLQPublishedAt: at,
	}
	if publishErr != nil {
		dl.PublishError = publishErr.Error()
	}
	if json.Valid(event.Payload) {
		dl.Payload = event.Payload
	}
	return dl
}

// ParseDeadLetter разбирает payload из DLQ.
func ParseDeadLetter(data []byte) (DeadLetter, error) {
	var dl DeadLetter
	if err := json.Unmarshal(data, &dl); err != nil {
		return DeadLetter{}, fmt.Errorf("decode dead letter: %w", err)
	}
	if dl.OutboxID == "" || dl.EventType == "" {
		return DeadLetter{}, errors.New("dead letter: outbox_id and event_type are required")
	}
	return dl, nil
}

// Original восстанавливает исходное сообщение outbox для повторной публикации.
func (d DeadLetter) Original() domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            d.OutboxID,
		AggregateType: d.AggregateType,
		AggregateID:   d.AggregateID,
		EventType:     d.EventType,
		Payload:       []byte(d.Payload),
	}
}
