package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/foodorder/internal/health"
	"github.com/vladislavdragonenkov/foodorder/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/foodorder/internal/messaging/rabbitmq"
)

const clientID = "foodorder"

// brokerDependencies — паблишеры outbox для выбранного брокера.
type brokerDependencies struct {
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	checker   healthcheck.Checker
	closeFn   func() error
}

func initBroker(cfg Config, logger *log.Entry) (*brokerDependencies, error) {
	switch cfg.Broker {
	case BrokerNone, "":
		logger.Info("no broker configured, outbox events are written to the log")
		return &brokerDependencies{
			publisher: logPublisher{logger: logger.WithField("publisher", "log")},
			closeFn:   func() error { return nil },
		}, nil
	case BrokerKafka:
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, clientID, logger.WithField("broker", "kafka"))
		if err != nil {
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		return &brokerDependencies{
			publisher: kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			dlq:       kafka.NewOutboxPublisher(producer, cfg.KafkaTopic+".dlq"),
			closeFn:   producer.Close,
		}, nil
	case BrokerRabbitMQ:
		client, err := rabbitmq.Dial(cfg.RabbitMQURL, logger.WithField("broker", "rabbitmq"))
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		dlqExchange := cfg.RabbitMQExchange + ".dlq"
		for _, exchange := range []string{cfg.RabbitMQExchange, dlqExchange} {
			if err := client.DeclareExchange(exchange); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
			}
		}
		logger.WithField("exchange", cfg.RabbitMQExchange).Info("rabbitmq publisher initialized")
		return &brokerDependencies{
			publisher: rabbitmq.NewOutboxPublisher(client, cfg.RabbitMQExchange),
			dlq:       rabbitmq.NewOutboxPublisher(client, dlqExchange),
			checker:   healthcheck.NewPingChecker("rabbitmq", client, true),
			closeFn:   client.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported broker %q", cfg.Broker)
	}
}

// logPublisher «публикует» события в лог, когда брокер не настроен.
type logPublisher struct {
	logger *log.Entry
}

func (p logPublisher) Publish(_ context.Context, event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"outbox_id":    event.ID,
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID,
	}).Info("outbox event")
	return nil
}
