// Package cart реализует операции с корзиной пользователя поверх CartRepository.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
)

// Service — корзина пользователя. В каждый момент все позиции пользователя
// относятся к одному ресторану; инвариант атомарно проверяет репозиторий.
type Service struct {
	repo    domain.CartRepository
	logger  *log.Entry
	metrics *metrics.WorkflowMetrics
}

// NewService создаёт сервис корзины. logger и m могут быть nil.
func NewService(repo domain.CartRepository, logger *log.Entry, m *metrics.WorkflowMetrics) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{repo: repo, logger: logger, metrics: m}
}

// AddItem добавляет позицию в корзину или увеличивает количество существующей.
func (s *Service) AddItem(ctx context.Context, userID, restaurantID, menuItemID int64, quantity int32, price decimal.Decimal) (domain.CartLine, error) {
	line := domain.CartLine{
		UserID:       userID,
		RestaurantID: restaurantID,
		MenuItemID:   menuItemID,
		Quantity:     quantity,
		UnitPrice:    price,
	}
	if errs := line.Validate(); len(errs) > 0 {
		err := errors.Join(errs...)
		s.metrics.RecordCartOperation("add", err)
		return domain.CartLine{}, err
	}

	stored, err := s.repo.AddOrMerge(ctx, line)
	s.metrics.RecordCartOperation("add", err)
	if err != nil {
		if !errors.Is(err, domain.ErrDifferentRestaurant) {
			s.logger.WithError(err).WithFields(log.Fields{
				"user_id":       userID,
				"restaurant_id": restaurantID,
			}).Error("add cart item failed")
		}
		return domain.CartLine{}, err
	}

	s.logger.WithFields(log.Fields{
		"user_id":      userID,
		"cart_line_id": stored.ID,
		"quantity":     stored.Quantity,
	}).Debug("cart item added")
	return stored, nil
}

// UpdateQuantity прибавляет delta к количеству; позиция с итогом <= 0 удаляется (removed=true).
func (s *Service) UpdateQuantity(ctx context.Context, cartLineID string, delta int32) (domain.CartLine, bool, error) {
	if cartLineID == "" {
		return domain.CartLine{}, false, domain.ErrCartLineNotFound
	}

	line, removed, err := s.repo.AdjustQuantity(ctx, cartLineID, delta)
	s.metrics.RecordCartOperation("update", err)
	if err != nil {
		return domain.CartLine{}, false, fmt.Errorf("update cart line %s: %w", cartLineID, err)
	}
	return line, removed, nil
}

// RemoveItem удаляет позицию; удаление последней позиции оставляет пустую корзину.
func (s *Service) RemoveItem(ctx context.Context, cartLineID string) error {
	if cartLineID == "" {
		return domain.ErrCartLineNotFound
	}

	err := s.repo.Delete(ctx, cartLineID)
	s.metrics.RecordCartOperation("remove", err)
	if err != nil {
		return fmt.Errorf("remove cart line %s: %w", cartLineID, err)
	}
	return nil
}

// ListByUser возвращает позиции пользователя в порядке добавления.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListByUserAndRestaurant возвращает позиции пользователя в ресторане в порядке добавления.
func (s *Service) ListByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) ([]domain.CartLine, error) {
	return s.repo.ListByUserAndRestaurant(ctx, userID, restaurantID)
}

// ClearForOrder очищает корзину после оформления заказа. Идемпотентна.
func (s *Service) ClearForOrder(ctx context.Context, userID, restaurantID int64) error {
	err := s.repo.DeleteByUserAndRestaurant(ctx, userID, restaurantID)
	s.metrics.RecordCartOperation("clear", err)
	if err != nil {
		return fmt.Errorf("clear cart for user %d restaurant %d: %w", userID, restaurantID, err)
	}
	return nil
}
