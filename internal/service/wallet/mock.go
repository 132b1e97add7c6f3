// Package wallet содержит in-memory реализацию кошелька пользователя.
package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// MockService — кошелёк с балансами в памяти. Ошибки можно подменить для тестов
// сбоев внешней системы.
type MockService struct {
	mu       sync.Mutex
	balances map[int64]decimal.Decimal

	// DebitErr и CreditErr, если заданы, возвращаются вместо выполнения операции.
	DebitErr  error
	CreditErr error

	DebitCalls  int
	CreditCalls int
}

// NewMockService создаёт кошелёк без балансов.
func NewMockService() *MockService {
	return &MockService{balances: make(map[int64]decimal.Decimal)}
}

// SetBalance выставляет баланс пользователя.
func (m *MockService) SetBalance(userID int64, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = amount
}

// Balance возвращает текущий баланс пользователя.
func (m *MockService) Balance(userID int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

// Debit списывает amount, если на балансе достаточно средств.
func (m *MockService) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.DebitCalls++
	if m.DebitErr != nil {
		return m.DebitErr
	}
	if amount.IsNegative() {
		return domain.ErrInvalidInput
	}

	balance := m.balances[userID]
	if balance.LessThan(amount) {
		return fmt.Errorf("%w: balance %s, required %s", domain.ErrInsufficientFunds, balance, amount)
	}
	m.balances[userID] = balance.Sub(amount)
	return nil
}

// Credit зачисляет amount на баланс.
func (m *MockService) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreditCalls++
	if m.CreditErr != nil {
		return m.CreditErr
	}
	if amount.IsNegative() {
		return domain.ErrInvalidInput
	}

	m.balances[userID] = m.balances[userID].Add(amount)
	return nil
}

// SetCreditErr потокобезопасно подменяет ошибку Credit.
func (m *MockService) SetCreditErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreditErr = err
}

// Calls возвращает число вызовов Debit и Credit.
func (m *MockService) Calls() (debit, credit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DebitCalls, m.CreditCalls
}

var _ domain.WalletClient = (*MockService)(nil)
