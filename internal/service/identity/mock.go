// Package identity содержит in-memory реализацию сервиса пользователей и адресов.
package identity

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// MockService хранит известных пользователей и владельцев адресов.
type MockService struct {
	mu        sync.RWMutex
	users     map[int64]struct{}
	addresses map[int64]int64

	// Err, если задана, возвращается из всех вызовов.
	Err error
}

// NewMockService создаёт пустой справочник.
func NewMockService() *MockService {
	return &MockService{
		users:     make(map[int64]struct{}),
		addresses: make(map[int64]int64),
	}
}

// AddUser регистрирует пользователя.
func (m *MockService) AddUser(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = struct{}{}
}

// AddAddress регистрирует адрес доставки пользователя ownerID.
func (m *MockService) AddAddress(addressID, ownerID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[addressID] = ownerID
}

func (m *MockService) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return domain.User{}, m.Err
	}
	_, ok := m.users[userID]
	return domain.User{ID: userID, Exists: ok}, nil
}

func (m *MockService) GetAddress(ctx context.Context, addressID, userID int64) (domain.Address, error) {
	if err := ctx.Err(); err != nil {
		return domain.Address{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return domain.Address{}, m.Err
	}
	owner, ok := m.addresses[addressID]
	return domain.Address{ID: addressID, Exists: ok, OwnedByUser: ok && owner == userID}, nil
}

var _ domain.IdentityClient = (*MockService)(nil)
