package order

import (
	"context"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// GetOrder возвращает заказ с декодированным снимком корзины.
func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	record, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return s.toOrder(record), nil
}

// GetOrdersByUserID возвращает заказы пользователя, новые первыми.
func (s *Service) GetOrdersByUserID(ctx context.Context, userID int64) ([]domain.Order, error) {
	records, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toOrders(records), nil
}

// GetOrdersByRestaurantID возвращает заказы ресторана, новые первыми.
func (s *Service) GetOrdersByRestaurantID(ctx context.Context, restaurantID int64) ([]domain.Order, error) {
	records, err := s.orders.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	return s.toOrders(records), nil
}

// Timeline возвращает историю событий заказа, при заданных eventTypes только события этих типов.
func (s *Service) Timeline(ctx context.Context, orderID string, eventTypes ...string) ([]domain.TimelineEvent, error) {
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return nil, err
	}
	if s.timeline == nil {
		return nil, nil
	}
	return s.timeline.List(ctx, orderID, eventTypes...)
}
