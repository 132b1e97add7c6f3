package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// timelineRepositoryInMemory держит историю каждого заказа отсортированной по времени события.
type timelineRepositoryInMemory struct {
	mu      sync.RWMutex
	byOrder map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{byOrder: make(map[string][]domain.TimelineEvent)}
}

// Append вставляет событие на место по времени; события с одинаковым временем
// остаются в порядке записи.
func (r *timelineRepositoryInMemory) Append(ctx context.Context, event domain.TimelineEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := event.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.byOrder[event.OrderID]
	pos := sort.Search(len(history), func(i int) bool {
		return history[i].Occurred.After(event.Occurred)
	})
	history = append(history, domain.TimelineEvent{})
	copy(history[pos+1:], history[pos:])
	history[pos] = event
	r.byOrder[event.OrderID] = history
	return nil
}

// List возвращает историю заказа, при непустом eventTypes только события этих типов.
func (r *timelineRepositoryInMemory) List(ctx context.Context, orderID string, eventTypes ...string) ([]domain.TimelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := domain.ValidateEventTypes(eventTypes); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.TimelineEvent, 0, len(r.byOrder[orderID]))
	for _, event := range r.byOrder[orderID] {
		if event.MatchesEventTypes(eventTypes) {
			result = append(result, event)
		}
	}
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
