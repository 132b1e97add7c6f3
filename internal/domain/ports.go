package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Restaurant — ответ каталога о ресторане.
type Restaurant struct {
	ID     int64
	Name   string
	Exists bool
	IsOpen bool
}

// CatalogClient описывает внешний сервис ресторанов и меню.
type CatalogClient interface {
	// GetRestaurant возвращает состояние ресторана; ошибка транспорта — ErrExternalUnavailable.
	GetRestaurant(ctx context.Context, restaurantID int64) (Restaurant, error)
}

// WalletClient описывает внешний кошелёк пользователя.
type WalletClient interface {
	// Debit списывает amount; ErrInsufficientFunds или ErrExternalUnavailable при неудаче.
	Debit(ctx context.Context, userID int64, amount decimal.Decimal) error
	// Credit зачисляет amount (путь компенсации).
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) error
}

// User — ответ сервиса идентификации о пользователе.
type User struct {
	ID     int64
	Exists bool
}

// Address — ответ сервиса идентификации об адресе доставки.
type Address struct {
	ID          int64
	Exists      bool
	OwnedByUser bool
}

// IdentityClient описывает внешний сервис пользователей и адресов.
type IdentityClient interface {
	GetUser(ctx context.Context, userID int64) (User, error)
	GetAddress(ctx context.Context, addressID, userID int64) (Address, error)
}

// OutboxPublisher публикует события из outbox во внешний брокер.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// ErrInvalidOutboxMessage — сообщение без агрегата или типа события.
var ErrInvalidOutboxMessage = newKindError(ErrValidation, "outbox message requires aggregate type, aggregate id and event type")

// Validate проверяет, что сообщение привязано к агрегату и имеет тип события.
func (m OutboxMessage) Validate() error {
	if m.AggregateType == "" || m.AggregateID == "" || m.EventType == "" {
		return ErrInvalidOutboxMessage
	}
	return nil
}

// AggregateKey однозначно определяет агрегат, события которого публикуются по порядку.
func (m OutboxMessage) AggregateKey() string {
	return m.AggregateType + "/" + m.AggregateID
}
