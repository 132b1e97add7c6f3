package domain

import (
	"errors"
	"slices"
	"time"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}

// Типы событий заказа для timeline и outbox.
const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderCompleted     = "OrderCompleted"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// ErrInvalidTimelineEvent — событие без заказа или неизвестного типа.
var ErrInvalidTimelineEvent = newKindError(ErrValidation, "timeline event requires order_id and a known type")

var eventTypes = []string{
	EventOrderPlaced,
	EventOrderCancelled,
	EventOrderCompleted,
	EventOrderStatusChanged,
}

// Validate проверяет, что событие привязано к заказу и имеет известный тип.
func (e TimelineEvent) Validate() error {
	if e.OrderID == "" || !slices.Contains(eventTypes, e.Type) {
		return ErrInvalidTimelineEvent
	}
	return nil
}

// ValidateEventTypes проверяет фильтр типов событий; пустой фильтр допустим.
func ValidateEventTypes(types []string) error {
	for _, t := range types {
		if !slices.Contains(eventTypes, t) {
			return errors.Join(ErrInvalidTimelineEvent, errors.New("unknown event type "+t))
		}
	}
	return nil
}

// MatchesEventTypes сообщает, проходит ли событие фильтр; пустой фильтр пропускает всё.
func (e TimelineEvent) MatchesEventTypes(types []string) bool {
	return len(types) == 0 || slices.Contains(types, e.Type)
}
