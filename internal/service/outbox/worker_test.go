package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/memory"
)

func placedEvent(id string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "order",
		AggregateID:   "order-" + id,
		EventType:     domain.EventOrderPlaced,
		Payload:       []byte(`{"status":"placed"}`),
	}
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewOutboxRepository()
	_, err := repo.Enqueue(ctx, placedEvent("msg-1"))
	require.NoError(t, err)
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher,
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
		WithMetrics(metrics.NewOutboxMetrics(prometheus.NewRegistry())),
	)

	require.Equal(t, 1, worker.ProcessOnce(ctx))
	require.Empty(t, repo.AllPending())
	require.Equal(t, 1, publisher.calls())
	require.Equal(t, "msg-1", publisher.last().ID)
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{placedEvent("msg-2")}}
	publisher := &stubPublisher{err: errors.New("publish failed")}
	dlqPublisher := &stubPublisher{}

	worker := NewWorker(repo, publisher,
		WithDLQPublisher(dlqPublisher),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)

	require.Zero(t, worker.ProcessOnce(context.Background()))
	require.Equal(t, 3, publisher.calls())
	require.Empty(t, repo.sentIDs)
	require.Equal(t, []string{"msg-2"}, repo.failedIDs)
	require.Equal(t, 1, dlqPublisher.calls())

	var envelope DeadLetter
	require.NoError(t, json.Unmarshal(dlqPublisher.last().Payload, &envelope))
	require.Equal(t, "msg-2", envelope.OutboxID)
	require.Contains(t, envelope.PublishError, "publish failed")
	require.JSONEq(t, `{"status":"placed"}`, string(envelope.Payload))
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{placedEvent("msg-3")}}
	publisher := &stubPublisher{
		sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil},
	}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	require.Equal(t, 3, publisher.calls())
	require.Equal(t, []string{"msg-3"}, repo.sentIDs)
	require.Empty(t, repo.failedIDs)
}

func TestWorker_ProcessOnce_HoldsLaterEventsOfFailedOrder(t *testing.T) {
	t.Parallel()

	placed := placedEvent("msg-4")
	cancelled := placedEvent("msg-5")
	cancelled.AggregateID = placed.AggregateID
	cancelled.EventType = domain.EventOrderCancelled
	other := placedEvent("msg-6")

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{placed, cancelled, other}}
	publisher := &stubPublisher{sequenceErrors: []error{errors.New("broker down")}}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(1))
	require.Equal(t, 1, worker.ProcessOnce(context.Background()))

	require.Equal(t, []string{"msg-4"}, repo.failedIDs)
	require.Equal(t, []string{"msg-6"}, repo.sentIDs)
	require.Equal(t, 2, publisher.calls())
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker(&stubOutboxRepo{}, &stubPublisher{},
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorker_Run_DisabledWithoutPublisher(t *testing.T) {
	t.Parallel()

	worker := NewWorker(&stubOutboxRepo{}, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker without publisher must return immediately")
	}
}

type stubOutboxRepo struct {
	mu        sync.Mutex
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

func (s *stubOutboxRepo) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	return msg, nil
}

func (s *stubOutboxRepo) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit >= len(s.pending) {
		return append([]domain.OutboxMessage(nil), s.pending...), nil
	}
	return append([]domain.OutboxMessage(nil), s.pending[:limit]...), nil
}

func (s *stubOutboxRepo) Stats(context.Context) (domain.OutboxStats, error) {
	return domain.OutboxStats{PendingCount: len(s.pending)}, nil
}

func (s *stubOutboxRepo) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentIDs = append(s.sentIDs, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedIDs = append(s.failedIDs, id)
	return nil
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	published      []domain.OutboxMessage
}

func (s *stubPublisher) Publish(_ context.Context, msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.published = append(s.published, msg)
	if len(s.sequenceErrors) > 0 {
		err := s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
		return err
	}
	return s.err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

func (s *stubPublisher) last() domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published[len(s.published)-1]
}

var (
	_ domain.OutboxRepository = (*stubOutboxRepo)(nil)
	_ domain.OutboxPublisher  = (*stubPublisher)(nil)
)
