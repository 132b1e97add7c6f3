package domain

import (
	"context"
	"time"
)

// CartRepository хранит позиции корзин.
type CartRepository interface {
	// AddOrMerge атомарно проверяет инвариант одного ресторана на пользователя и либо
	// суммирует количество существующей позиции, либо создаёт новую.
	AddOrMerge(ctx context.Context, line CartLine) (CartLine, error)
	// Get возвращает позицию или ErrCartLineNotFound.
	Get(ctx context.Context, lineID string) (CartLine, error)
	// AdjustQuantity прибавляет delta; при результате <= 0 позиция удаляется (removed=true).
	AdjustQuantity(ctx context.Context, lineID string, delta int32) (line CartLine, removed bool, err error)
	Delete(ctx context.Context, lineID string) error
	ListByUser(ctx context.Context, userID int64) ([]CartLine, error)
	ListByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) ([]CartLine, error)
	// DeleteByUserAndRestaurant идемпотентно очищает корзину пользователя в ресторане.
	DeleteByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ целиком. ErrOrderAlreadyExists при повторном ID.
	Create(ctx context.Context, order OrderRecord) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (OrderRecord, error)
	// ListByUser возвращает заказы пользователя, новые первыми.
	ListByUser(ctx context.Context, userID int64) ([]OrderRecord, error)
	// ListByRestaurant возвращает заказы ресторана, новые первыми.
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]OrderRecord, error)
	// UpdateStatus меняет статус, только если текущий статус равен from (compare-and-set).
	UpdateStatus(ctx context.Context, id string, from, to OrderStatus) (OrderRecord, error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxStats описывает текущее состояние backlog outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// TimelineRepository хранит события жизненного цикла заказа.
// List без eventTypes возвращает все события заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID string, eventTypes ...string) ([]TimelineEvent, error)
}

// CompensationRepository хранит компенсации, которые не удалось выполнить синхронно.
type CompensationRepository interface {
	Record(ctx context.Context, rec CompensationRecord) (CompensationRecord, error)
	ListPending(ctx context.Context, limit int) ([]CompensationRecord, error)
	MarkResolved(ctx context.Context, id string) error
	MarkAttempt(ctx context.Context, id string, lastErr string) error
}
