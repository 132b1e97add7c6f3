// Package outbox публикует события заказов из transactional outbox во внешний брокер.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

// WorkerOptions задаёт параметры outbox worker.
type WorkerOptions struct {
	Logger         *log.Entry
	Metrics        *metrics.OutboxMetrics
	DLQPublisher   domain.OutboxPublisher
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Option настраивает Worker.
type Option func(*WorkerOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *WorkerOptions) { opts.Logger = logger }
}

// WithMetrics подключает метрики backlog и публикаций.
func WithMetrics(m *metrics.OutboxMetrics) Option {
	return func(opts *WorkerOptions) { opts.Metrics = m }
}

// WithDLQPublisher задаёт publisher для отправки в DLQ после исчерпания retry.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(opts *WorkerOptions) { opts.DLQPublisher = publisher }
}

// WithPollInterval задаёт частоту опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *WorkerOptions) { opts.PollInterval = interval }
}

// WithBatchSize задаёт размер батча из outbox.
func WithBatchSize(batchSize int) Option {
	return func(opts *WorkerOptions) { opts.BatchSize = batchSize }
}

// WithMaxAttempts задаёт число попыток публикации перед failed/DLQ.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *WorkerOptions) { opts.MaxAttempts = maxAttempts }
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *WorkerOptions) { opts.RetryBaseDelay = delay }
}

// Worker публикует pending-сообщения из outbox в брокер.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	opts      WorkerOptions
	logger    *log.Entry
}

// NewWorker создаёт outbox worker.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	opts := WorkerOptions{
		PollInterval:   defaultPollInterval,
		BatchSize:      defaultBatchSize,
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "outbox-worker")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}

	return &Worker{
		repo:      repo,
		publisher: publisher,
		opts:      opts,
		logger:    opts.Logger,
	}
}

// Run запускает периодический polling outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один polling-цикл и возвращает число опубликованных сообщений.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	events, err := w.repo.PullPending(ctx, w.opts.BatchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return 0
	}

	// События одного заказа публикуются по порядку: после неудачи остальные
	// события этого заказа остаются pending до следующего цикла.
	held := make(map[string]struct{})
	sent := 0
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}
		key := event.AggregateKey()
		if _, ok := held[key]; ok {
			w.opts.Metrics.RecordPublish("held")
			continue
		}
		if w.handle(ctx, event) {
			sent++
			continue
		}
		held[key] = struct{}{}
	}

	w.refreshBacklog(ctx)
	return sent
}

func (w *Worker) handle(ctx context.Context, event domain.OutboxMessage) bool {
	entry := w.logger.WithFields(log.Fields{
		"outbox_id":  event.ID,
		"event_type": event.EventType,
	})

	err := w.publishWithRetry(ctx, event)
	if err == nil {
		if markErr := w.repo.MarkSent(ctx, event.ID); markErr != nil {
			entry.WithError(markErr).Warn("failed to mark outbox as sent")
		}
		return true
	}

	entry.WithError(err).Error("outbox publish failed after retries")
	w.opts.Metrics.RecordPublish("failed")

	if dlqErr := w.publishToDLQ(ctx, event, err); dlqErr != nil {
		entry.WithError(dlqErr).Warn("failed to publish to DLQ")
		w.opts.Metrics.RecordPublish("dlq_failed")
	}
	if markErr := w.repo.MarkFailed(ctx, event.ID); markErr != nil {
		entry.WithError(markErr).Warn("failed to mark outbox as failed")
	}
	return false
}

func (w *Worker) publishWithRetry(ctx context.Context, event domain.OutboxMessage) error {
	var lastErr error
	delay := w.opts.RetryBaseDelay

	for attempt := 1; attempt <= w.opts.MaxAttempts; attempt++ {
		err := w.publisher.Publish(ctx, event)
		if err == nil {
			w.opts.Metrics.RecordPublish("sent")
			return nil
		}
		lastErr = err
		w.opts.Metrics.RecordPublish("retry_error")

		if attempt == w.opts.MaxAttempts || delay <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < time.Minute {
			delay *= 2
		}
	}

	return fmt.Errorf("%w: %d attempts: %v", domain.ErrOutboxPublish, w.opts.MaxAttempts, lastErr)
}

func (w *Worker) refreshBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}
	w.opts.Metrics.SetBacklog(stats.PendingCount, stats.OldestPendingAt, time.Now())
}

func (w *Worker) publishToDLQ(ctx context.Context, event domain.OutboxMessage, publishErr error) error {
	if w.opts.DLQPublisher == nil {
		return nil
	}

	payload, err := json.Marshal(NewDeadLetter(event, publishErr, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("marshal dlq payload: %w", err)
	}

	dlqEvent := event
	dlqEvent.Payload = payload
	if err := w.opts.DLQPublisher.Publish(ctx, dlqEvent); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}
