package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.OrderRecord
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.OrderRecord),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(ctx context.Context, order domain.OrderRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	r.items[order.ID] = cloneRecord(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(ctx context.Context, id string) (domain.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderRecord{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.OrderRecord{}, domain.ErrOrderNotFound
	}
	return cloneRecord(order), nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (r *orderRepositoryInMemory) ListByUser(ctx context.Context, userID int64) ([]domain.OrderRecord, error) {
	return r.list(ctx, func(o domain.OrderRecord) bool { return o.UserID == userID })
}

// ListByRestaurant возвращает заказы ресторана, новые первыми.
func (r *orderRepositoryInMemory) ListByRestaurant(ctx context.Context, restaurantID int64) ([]domain.OrderRecord, error) {
	return r.list(ctx, func(o domain.OrderRecord) bool { return o.RestaurantID == restaurantID })
}

// UpdateStatus переводит заказ из from в to, если текущий статус равен from.
func (r *orderRepositoryInMemory) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (domain.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return domain.OrderRecord{}, domain.ErrOrderNotFound
	}
	if current.Status != from {
		return domain.OrderRecord{}, fmt.Errorf("%w: current status %s, expected %s", domain.ErrOrderUpdate, current.Status, from)
	}

	current.Status = to
	current.UpdatedAt = time.Now().UTC()
	r.items[id] = current
	return cloneRecord(current), nil
}

func (r *orderRepositoryInMemory) list(ctx context.Context, match func(domain.OrderRecord) bool) ([]domain.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.OrderRecord, 0)
	for _, order := range r.items {
		if match(order) {
			result = append(result, cloneRecord(order))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OrderTime.Equal(result[j].OrderTime) {
			return result[i].OrderTime.After(result[j].OrderTime)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// cloneRecord копирует блоб снимка, чтобы вызывающий код не мутировал хранилище.
func cloneRecord(order domain.OrderRecord) domain.OrderRecord {
	if order.CartSnapshot != nil {
		order.CartSnapshot = append([]byte(nil), order.CartSnapshot...)
	}
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
