// Package rabbitmq публикует события заказов в topic-exchange RabbitMQ с publisher confirms.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// ExchangeOrderEvents — exchange по умолчанию.
const ExchangeOrderEvents = "foodorder.order.events"

// channel — часть *amqp.Channel, которую использует клиент.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Client держит одно соединение и канал в режиме confirm.
type Client struct {
	conn   *amqp.Connection
	ch     channel
	acks   <-chan amqp.Confirmation
	logger *log.Entry

	// mu сериализует Publish: подтверждения приходят в порядке публикаций.
	mu sync.Mutex
}

// Dial подключается к брокеру по amqp-URL и включает publisher confirms.
func Dial(url string, logger *log.Entry) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	client := newClient(ch, acks, logger)
	client.conn = conn
	return client, nil
}

func newClient(ch channel, acks <-chan amqp.Confirmation, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.WithField("component", "rabbitmq")
	}
	return &Client{ch: ch, acks: acks, logger: logger}
}

// DeclareExchange объявляет durable topic-exchange.
func (c *Client) DeclareExchange(name string) error {
	if err := c.ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}

// Ping проверяет, что соединение открыто.
func (c *Client) Ping(context.Context) error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Publish отправляет persistent-сообщение и ждёт ack/nack от брокера.
func (c *Client) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg.DeliveryMode = amqp.Persistent
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	if err := c.ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, key, err)
	}

	select {
	case conf, ok := <-c.acks:
		if !ok {
			return errors.New("rabbitmq confirm channel closed")
		}
		if !conf.Ack {
			return fmt.Errorf("publish to %s/%s: nack from broker", exchange, key)
		}
		c.logger.WithFields(log.Fields{
			"exchange":     exchange,
			"routing_key":  key,
			"delivery_tag": conf.DeliveryTag,
		}).Debug("message confirmed by rabbitmq")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close закрывает канал и соединение.
func (c *Client) Close() error {
	var errs []error
	if c.ch != nil {
		errs = append(errs, c.ch.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}
