// Package messaging содержит формат событий заказов, общий для всех брокеров.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// Envelope — outbox-сообщение в том виде, в каком оно уходит в брокер.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope упаковывает outbox-сообщение. Невалидный JSON в payload передаётся строкой.
func NewEnvelope(msg domain.OutboxMessage, publishedAt time.Time) Envelope {
	payload := json.RawMessage(msg.Payload)
	if !json.Valid(msg.Payload) {
		quoted, _ := json.Marshal(string(msg.Payload))
		payload = quoted
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   publishedAt.UTC(),
	}
}

// OutboxMessage восстанавливает исходное outbox-сообщение.
func (e Envelope) OutboxMessage() domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            e.ID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventType:     e.EventType,
		Payload:       []byte(e.Payload),
	}
}

// Key — ключ партиционирования: события одного заказа упорядочены между собой.
func Key(msg domain.OutboxMessage) string {
	if msg.AggregateID != "" {
		return msg.AggregateID
	}
	return msg.ID
}

// ParseEnvelope разбирает тело сообщения из брокера.
func ParseEnvelope(data []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return envelope, nil
}
