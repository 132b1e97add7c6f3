// Package catalog содержит клиентов каталога ресторанов: in-memory реализацию
// и кэширующий декоратор поверх Redis.
package catalog

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// MockService — каталог ресторанов в памяти.
type MockService struct {
	mu          sync.RWMutex
	restaurants map[int64]domain.Restaurant

	// Err, если задана, возвращается вместо ответа.
	Err   error
	Calls int
}

// NewMockService создаёт пустой каталог.
func NewMockService() *MockService {
	return &MockService{restaurants: make(map[int64]domain.Restaurant)}
}

// AddRestaurant регистрирует ресторан.
func (m *MockService) AddRestaurant(id int64, name string, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restaurants[id] = domain.Restaurant{ID: id, Name: name, Exists: true, IsOpen: open}
}

// SetOpen меняет признак приёма заказов.
func (m *MockService) SetOpen(id int64, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.restaurants[id]; ok {
		r.IsOpen = open
		m.restaurants[id] = r
	}
}

// GetRestaurant возвращает ресторан; неизвестный ресторан — Exists=false без ошибки.
func (m *MockService) GetRestaurant(ctx context.Context, restaurantID int64) (domain.Restaurant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Restaurant{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	if m.Err != nil {
		return domain.Restaurant{}, m.Err
	}
	r, ok := m.restaurants[restaurantID]
	if !ok {
		return domain.Restaurant{ID: restaurantID}, nil
	}
	return r, nil
}

var _ domain.CatalogClient = (*MockService)(nil)
