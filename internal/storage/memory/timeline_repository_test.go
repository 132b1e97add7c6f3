package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/memory"
)

func TestTimelineRepository_AppendSortsByTime(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTimelineRepository()
	now := time.Now().UTC()

	if err := repo.Append(ctx, domain.TimelineEvent{OrderID: "o1", Type: domain.EventOrderCancelled, Occurred: now}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := repo.Append(ctx, domain.TimelineEvent{OrderID: "o1", Type: domain.EventOrderPlaced, Occurred: now.Add(-time.Minute)}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	events, err := repo.List(ctx, "o1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(events) != 2 || events[0].Type != domain.EventOrderPlaced || events[1].Type != domain.EventOrderCancelled {
		t.Fatalf("unexpected order of events: %+v", events)
	}

	other, _ := repo.List(ctx, "o2")
	if len(other) != 0 {
		t.Fatalf("expected no events for o2, got %d", len(other))
	}
}

func TestTimelineRepository_FiltersByType(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTimelineRepository()
	now := time.Now().UTC()

	for i, eventType := range []string{domain.EventOrderPlaced, domain.EventOrderStatusChanged, domain.EventOrderCancelled} {
		event := domain.TimelineEvent{OrderID: "o1", Type: eventType, Occurred: now.Add(time.Duration(i) * time.Second)}
		if err := repo.Append(ctx, event); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	transitions, err := repo.List(ctx, "o1", domain.EventOrderStatusChanged, domain.EventOrderCancelled)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(transitions) != 2 || transitions[0].Type != domain.EventOrderStatusChanged {
		t.Fatalf("unexpected filtered events: %+v", transitions)
	}

	if _, err := repo.List(ctx, "o1", "Teleported"); !errors.Is(err, domain.ErrInvalidTimelineEvent) {
		t.Fatalf("expected ErrInvalidTimelineEvent for unknown filter, got %v", err)
	}
}

func TestTimelineRepository_RejectsInvalidEvent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTimelineRepository()

	if err := repo.Append(ctx, domain.TimelineEvent{Type: domain.EventOrderPlaced}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error without order id, got %v", err)
	}
	if err := repo.Append(ctx, domain.TimelineEvent{OrderID: "o1", Type: "Teleported"}); !errors.Is(err, domain.ErrInvalidTimelineEvent) {
		t.Fatalf("expected ErrInvalidTimelineEvent, got %v", err)
	}
}
