// Package kafka публикует события заказов в Kafka через sarama.SyncProducer.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// Producer — синхронный Kafka producer с подтверждением от всех in-sync реплик.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewConfig возвращает конфигурацию идемпотентного producer.
func NewConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	if clientID != "" {
		config.ClientID = clientID
	}
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// NewProducer подключается к брокерам.
func NewProducer(brokers []string, clientID string, logger *log.Entry) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewProducerFrom(producer, logger), nil
}

// NewProducerFrom оборачивает готовый sarama.SyncProducer (в тестах — mocks.SyncProducer).
func NewProducerFrom(producer sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{producer: producer, logger: logger}
}

// Publish отправляет сообщение и ждёт подтверждения брокера.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Headers:   recordHeaders(headers),
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")
	return nil
}

// PublishJSON сериализует value в JSON и публикует.
func (p *Producer) PublishJSON(ctx context.Context, topic, key string, value any, headers map[string]string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.Publish(ctx, topic, key, data, headers)
}

// Close закрывает producer.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]sarama.RecordHeader, 0, len(keys))
	for _, k := range keys {
		result = append(result, sarama.RecordHeader{Key: []byte(k), Value: []byte(headers[k])})
	}
	return result
}
