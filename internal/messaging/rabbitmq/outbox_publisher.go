package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/messaging"
)

// OutboxPublisher публикует outbox-сообщения в exchange с routing key
// "<aggregate>.<event>", например order.orderplaced.
type OutboxPublisher struct {
	client   *Client
	exchange string
}

// NewOutboxPublisher создаёт паблишер; пустой exchange заменяется ExchangeOrderEvents.
func NewOutboxPublisher(client *Client, exchange string) *OutboxPublisher {
	if exchange == "" {
		exchange = ExchangeOrderEvents
	}
	return &OutboxPublisher{client: client, exchange: exchange}
}

func (p *OutboxPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("rabbitmq outbox publisher is not initialized")
	}

	now := time.Now().UTC()
	body, err := json.Marshal(messaging.NewEnvelope(event, now))
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return p.client.Publish(ctx, p.exchange, RoutingKey(event), amqp.Publishing{
		ContentType:   "application/json",
		MessageId:     event.ID,
		CorrelationId: messaging.Key(event),
		Type:          event.EventType,
		Timestamp:     now,
		Headers:       amqp.Table{"x-source": "foodorder"},
		Body:          body,
	})
}

// RoutingKey строит routing key из типа агрегата и события.
func RoutingKey(event domain.OutboxMessage) string {
	aggregate := event.AggregateType
	if aggregate == "" {
		aggregate = "event"
	}
	return strings.ToLower(aggregate + "." + event.EventType)
}

var _ domain.OutboxPublisher = (*OutboxPublisher)(nil)
