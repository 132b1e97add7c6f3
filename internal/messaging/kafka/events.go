package kafka

import (
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/foodorder/internal/messaging"
)

// Topics по умолчанию.
const (
	TopicOrderEvents     = "foodorder.order.events"
	TopicDeadLetterQueue = "foodorder.order.events.dlq"
)

// Заголовки Kafka-сообщений.
const (
	HeaderEventType  = "x-event-type"
	HeaderMessageID  = "x-message-id"
	HeaderReplayedAt = "x-replayed-at"
)

// ParseEnvelope разбирает значение сообщения из topic событий.
func ParseEnvelope(message *sarama.ConsumerMessage) (messaging.Envelope, error) {
	envelope, err := messaging.ParseEnvelope(message.Value)
	if err != nil {
		return messaging.Envelope{}, fmt.Errorf("%s/%d/%d: %w", message.Topic, message.Partition, message.Offset, err)
	}
	return envelope, nil
}
