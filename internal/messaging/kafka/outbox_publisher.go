package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/messaging"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
// Ключ сообщения — идентификатор заказа, поэтому события одного заказа попадают в одну партицию.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

// Topic возвращает topic назначения.
func (p *OutboxTopicPublisher) Topic() string { return p.topic }

func (p *OutboxTopicPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	headers := map[string]string{
		HeaderEventType: event.EventType,
		HeaderMessageID: event.ID,
	}
	return p.producer.PublishJSON(ctx, p.topic, messaging.Key(event), messaging.NewEnvelope(event, time.Now()), headers)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
