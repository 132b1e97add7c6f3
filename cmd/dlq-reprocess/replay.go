package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/messaging"
	"github.com/vladislavdragonenkov/foodorder/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/foodorder/internal/service/outbox"
)

type replayStats struct {
	processed int
	replayed  int
	skipped   int
}

func (s *replayStats) add(other replayStats) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
}

type replayMessage struct {
	key     string
	value   []byte
	headers map[string]string
}

func runReplay(ctx context.Context, cfg config, client offsetClient, consumer partitionConsumerSource, publisher replayPublisher) (replayStats, error) {
	var total replayStats
	if client == nil || consumer == nil {
		return total, errors.New("kafka client and consumer are required")
	}
	if cfg.execute && publisher == nil {
		return total, errors.New("publisher is required in execute mode")
	}

	partitions, err := client.Partitions(cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", cfg.sourceTopic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", cfg.sourceTopic).Warn("source topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.processed >= cfg.limit {
			break
		}
		stats, err := processPartition(ctx, consumer, client, publisher, cfg, partition, cfg.limit-total.processed)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": total.processed,
		"replayed":  total.replayed,
		"skipped":   total.skipped,
	}).Info("dlq replay finished")

	return total, nil
}

func processPartition(
	ctx context.Context,
	consumer partitionConsumerSource,
	client offsetClient,
	publisher replayPublisher,
	cfg config,
	partition int32,
	limit int,
) (replayStats, error) {
	var stats replayStats
	if limit <= 0 {
		return stats, nil
	}

	oldest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	startOffset := oldest
	if cfg.fromNewest {
		startOffset = max(newest-int64(limit), oldest)
	}

	pc, err := consumer.ConsumePartition(cfg.sourceTopic, partition, startOffset)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idleTimer := time.NewTimer(cfg.idleTimeout)
	defer idleTimer.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case consumerErr := <-pc.Errors():
			if consumerErr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil {
				return stats, nil
			}
			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(cfg.idleTimeout)

			if msg.Offset >= newest {
				return stats, nil
			}
			stats.processed++

			entry := log.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})
			replay, err := extractReplayMessage(msg, time.Now().UTC())
			if err != nil {
				stats.skipped++
				entry.WithError(err).Warn("skip unsupported dlq message")
			} else if cfg.execute {
				if err := publisher.Publish(ctx, cfg.targetTopic, replay.key, replay.value, replay.headers); err != nil {
					return stats, fmt.Errorf("publish replay message: %w", err)
				}
				stats.replayed++
			} else {
				entry.WithFields(log.Fields{
					"target_topic": cfg.targetTopic,
					"key":          replay.key,
					"event_type":   replay.headers[kafka.HeaderEventType],
				}).Info("dlq replay candidate")
				stats.replayed++
			}

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idleTimer.C:
			return stats, nil
		}
	}

	return stats, nil
}

// extractReplayMessage разворачивает DLQ-сообщение outbox worker'а в исходное событие.
func extractReplayMessage(msg *sarama.ConsumerMessage, now time.Time) (replayMessage, error) {
	envelope, err := kafka.ParseEnvelope(msg)
	if err != nil {
		return replayMessage{}, err
	}
	dead, err := outbox.ParseDeadLetter(envelope.Payload)
	if err != nil {
		return replayMessage{}, err
	}
	if len(dead.Payload) == 0 {
		return replayMessage{}, errors.New("dead letter does not contain original event payload")
	}

	original := dead.Original()
	value, err := json.Marshal(messaging.NewEnvelope(original, now))
	if err != nil {
		return replayMessage{}, fmt.Errorf("encode replay envelope: %w", err)
	}

	return replayMessage{
		key:   messaging.Key(original),
		value: value,
		headers: map[string]string{
			kafka.HeaderEventType:  original.EventType,
			kafka.HeaderMessageID:  original.ID,
			kafka.HeaderReplayedAt: now.Format(time.RFC3339),
		},
	}, nil
}
