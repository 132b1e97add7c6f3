// Package order реализует оформление заказа из корзины, его жизненный цикл и запросы.
//
// Оформление — многошаговая операция поверх внешних систем: кошелёк списывает деньги
// раньше, чем заказ сохраняется, поэтому каждое списание сопровождается компенсацией
// (зачислением), которая выполняется, если последующий шаг не удался.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
	"github.com/vladislavdragonenkov/foodorder/internal/snapshot"
)

// compensationTimeout ограничивает откат, который выполняется даже после отмены контекста запроса.
const compensationTimeout = 5 * time.Second

// CartStore — операции корзины, нужные оформлению заказа.
type CartStore interface {
	ListByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) ([]domain.CartLine, error)
	ClearForOrder(ctx context.Context, userID, restaurantID int64) error
}

// Dependencies собирает зависимости сервиса заказов.
// Timeline, Outbox, Compensations, Metrics и Logger необязательны.
type Dependencies struct {
	Cart     CartStore
	Orders   domain.OrderRepository
	Wallet   domain.WalletClient
	Catalog  domain.CatalogClient
	Identity domain.IdentityClient
	Codec    *snapshot.Codec

	Timeline      domain.TimelineRepository
	Outbox        domain.OutboxRepository
	Compensations domain.CompensationRepository
	Metrics       *metrics.WorkflowMetrics
	Logger        *log.Entry

	// Now и NewID подменяются в тестах.
	Now   func() time.Time
	NewID func() string
}

// Service — оформление, отмена, завершение заказов и выборки по пользователю и ресторану.
type Service struct {
	cart          CartStore
	orders        domain.OrderRepository
	wallet        domain.WalletClient
	catalog       domain.CatalogClient
	identity      domain.IdentityClient
	codec         *snapshot.Codec
	timeline      domain.TimelineRepository
	outbox        domain.OutboxRepository
	compensations domain.CompensationRepository
	metrics       *metrics.WorkflowMetrics
	logger        *log.Entry
	now           func() time.Time
	newID         func() string
}

// NewService проверяет обязательные зависимости и создаёт сервис.
func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.Cart == nil:
		return nil, errors.New("order service: cart store is required")
	case deps.Orders == nil:
		return nil, errors.New("order service: order repository is required")
	case deps.Wallet == nil:
		return nil, errors.New("order service: wallet client is required")
	case deps.Catalog == nil:
		return nil, errors.New("order service: catalog client is required")
	case deps.Identity == nil:
		return nil, errors.New("order service: identity client is required")
	}

	s := &Service{
		cart:          deps.Cart,
		orders:        deps.Orders,
		wallet:        deps.Wallet,
		catalog:       deps.Catalog,
		identity:      deps.Identity,
		codec:         deps.Codec,
		timeline:      deps.Timeline,
		outbox:        deps.Outbox,
		compensations: deps.Compensations,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		now:           deps.Now,
		newID:         deps.NewID,
	}
	if s.codec == nil {
		s.codec = snapshot.MustCodec(snapshot.DefaultVersion)
	}
	if s.logger == nil {
		s.logger = log.New().WithField("component", "order-service")
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// observe пишет длительность шага в гистограмму; вызывается через defer.
func (s *Service) observe(step string, started time.Time) {
	s.metrics.ObserveStep(step, time.Since(started))
}

// toOrder декодирует снимок корзины. Нечитаемый снимок или снимок чужого ресторана не ломает чтение:
// заказ возвращается без позиций с флагом SnapshotDegraded.
func (s *Service) toOrder(record domain.OrderRecord) domain.Order {
	order := domain.Order{
		ID:                record.ID,
		UserID:            record.UserID,
		RestaurantID:      record.RestaurantID,
		DeliveryAddressID: record.DeliveryAddressID,
		Status:            record.Status,
		TotalPrice:        record.TotalPrice,
		OrderTime:         record.OrderTime,
		UpdatedAt:         record.UpdatedAt,
	}

	snap, err := s.codec.Decode(record.CartSnapshot)
	if err == nil && snap.RestaurantID != record.RestaurantID {
		err = fmt.Errorf("snapshot restaurant %d does not match order restaurant %d", snap.RestaurantID, record.RestaurantID)
	}
	if err != nil {
		s.logger.WithError(err).WithField("order_id", record.ID).Warn("cart snapshot unreadable, returning order without items")
		s.metrics.RecordDegradedRead()
		order.SnapshotDegraded = true
		return order
	}
	order.Items = snap.Items
	return order
}

func (s *Service) toOrders(records []domain.OrderRecord) []domain.Order {
	orders := make([]domain.Order, 0, len(records))
	for _, record := range records {
		orders = append(orders, s.toOrder(record))
	}
	return orders
}
