package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/metrics"
	"github.com/vladislavdragonenkov/foodorder/internal/pricing"
	"github.com/vladislavdragonenkov/foodorder/internal/service/saga"
)

// PlaceOrder оформляет заказ из корзины пользователя в ресторане.
//
// Порядок шагов: корзина, пользователь и адрес, ресторан, расчёт суммы, списание,
// сохранение заказа, очистка корзины. Если сохранение не удалось, списание
// компенсируется зачислением и возвращается ErrOrderPersistence.
func (s *Service) PlaceOrder(ctx context.Context, userID, restaurantID, addressID int64) (domain.Order, error) {
	logger := s.logger.WithFields(log.Fields{
		"user_id":       userID,
		"restaurant_id": restaurantID,
	})

	lines, err := s.validate(ctx, userID, restaurantID, addressID)
	if err != nil {
		s.metrics.RecordPlaceOrder(metrics.ResultRejected)
		logger.WithError(err).Info("order rejected")
		return domain.Order{}, err
	}

	quote, err := pricing.QuoteCart(lines)
	if err != nil {
		s.metrics.RecordPlaceOrder(metrics.ResultRejected)
		return domain.Order{}, err
	}

	compensations := saga.NewStack(logger)
	if err := s.debit(ctx, userID, quote.Total); err != nil {
		s.metrics.RecordPlaceOrder(metrics.ResultRejected)
		logger.WithError(err).Info("wallet debit declined")
		return domain.Order{}, err
	}
	compensations.Push("wallet.credit", func(ctx context.Context) error {
		return s.wallet.Credit(ctx, userID, quote.Total)
	})

	record, err := s.persist(ctx, userID, restaurantID, addressID, lines, quote.Total)
	if err != nil {
		s.compensate(ctx, compensations, record.ID, userID, quote.Total, err, logger)
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrOrderPersistence, err)
	}
	compensations.Discard()

	// Заказ уже сохранён и оплачен: ошибка очистки корзины не отменяет его.
	if err := s.cart.ClearForOrder(ctx, userID, restaurantID); err != nil {
		logger.WithError(err).WithField("order_id", record.ID).Warn("cart clear failed after order placed")
	}

	s.emit(ctx, record, domain.EventOrderPlaced, "")
	s.metrics.RecordPlaceOrder(metrics.ResultPlaced)
	s.metrics.RecordStatusChange(string(domain.OrderStatusPlaced))

	logger.WithFields(log.Fields{
		"order_id": record.ID,
		"total":    quote.Total.String(),
	}).Info("order placed")

	return s.toOrder(record), nil
}

// validate выполняет все проверки до списания: ни одна из них не трогает кошелёк.
func (s *Service) validate(ctx context.Context, userID, restaurantID, addressID int64) ([]domain.CartLine, error) {
	defer s.observe("validate", time.Now())

	if userID <= 0 {
		return nil, domain.ErrUserIDRequired
	}
	if restaurantID <= 0 {
		return nil, domain.ErrRestaurantIDRequired
	}

	lines, err := s.cart.ListByUserAndRestaurant(ctx, userID, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	user, err := s.identity.GetUser(ctx, userID)
	if err != nil {
		return nil, external("identity.get_user", err)
	}
	if !user.Exists {
		return nil, domain.ErrUserNotFound
	}

	address, err := s.identity.GetAddress(ctx, addressID, userID)
	if err != nil {
		return nil, external("identity.get_address", err)
	}
	if !address.Exists {
		return nil, domain.ErrAddressNotFound
	}
	if !address.OwnedByUser {
		return nil, domain.ErrAddressNotOwned
	}

	restaurant, err := s.catalog.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, external("catalog.get_restaurant", err)
	}
	if !restaurant.Exists {
		return nil, domain.ErrRestaurantNotFound
	}
	if !restaurant.IsOpen {
		return nil, domain.ErrRestaurantClosed
	}

	if !domain.SameRestaurant(lines, restaurantID) {
		return nil, domain.ErrDifferentRestaurant
	}

	return lines, nil
}

func (s *Service) debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	defer s.observe("debit", time.Now())

	if err := s.wallet.Debit(ctx, userID, amount); err != nil {
		return external("wallet.debit", err)
	}
	return nil
}

// persist кодирует снимок, проверяет инварианты заказа и сохраняет его.
// Возвращаемая запись содержит ID даже при ошибке.
func (s *Service) persist(ctx context.Context, userID, restaurantID, addressID int64, lines []domain.CartLine, total decimal.Decimal) (domain.OrderRecord, error) {
	defer s.observe("persist", time.Now())

	now := s.now().UTC()
	record := domain.OrderRecord{
		ID:                s.newID(),
		UserID:            userID,
		RestaurantID:      restaurantID,
		DeliveryAddressID: addressID,
		Status:            domain.OrderStatusPlaced,
		TotalPrice:        total,
		OrderTime:         now,
		UpdatedAt:         now,
	}

	snap := domain.SnapshotFromCart(restaurantID, lines)
	blob, err := s.codec.Encode(snap)
	if err != nil {
		return record, fmt.Errorf("encode cart snapshot: %w", err)
	}
	record.CartSnapshot = blob

	if errs := domain.ValidateInvariants(record, snap); len(errs) > 0 {
		return record, errors.Join(errs...)
	}
	if err := s.orders.Create(ctx, record); err != nil {
		return record, err
	}
	return record, nil
}

// compensate откатывает выполненные шаги. Откат идёт в отдельном контексте,
// чтобы отмена запроса клиентом не оставила деньги списанными.
// Невыполненная компенсация записывается для последующей сверки.
func (s *Service) compensate(ctx context.Context, stack *saga.Stack, orderID string, userID int64, amount decimal.Decimal, cause error, logger *log.Entry) {
	defer s.observe("compensate", time.Now())

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	failures := stack.Unwind(cctx)
	if len(failures) == 0 {
		s.metrics.RecordCompensation("applied")
		s.metrics.RecordPlaceOrder(metrics.ResultCompensated)
		logger.WithError(cause).WithField("order_id", orderID).Warn("order persistence failed, debit reversed")
		return
	}

	s.metrics.RecordCompensation("failed")
	s.metrics.RecordPlaceOrder(metrics.ResultReconcileDue)
	for _, failure := range failures {
		logger.WithError(failure.Err).WithFields(log.Fields{
			"order_id": orderID,
			"step":     failure.Step,
			"amount":   amount.String(),
			"cause":    cause.Error(),
		}).Error("compensation failed, reconciliation required")

		s.recordCompensation(cctx, domain.CompensationRecord{
			OrderID:   orderID,
			UserID:    userID,
			Amount:    amount,
			Reason:    fmt.Sprintf("%s after failed order persistence: %v", failure.Step, cause),
			LastError: failure.Err.Error(),
		}, logger)
	}
}

func (s *Service) recordCompensation(ctx context.Context, rec domain.CompensationRecord, logger *log.Entry) {
	if s.compensations == nil {
		return
	}
	if _, err := s.compensations.Record(ctx, rec); err != nil {
		logger.WithError(err).WithField("order_id", rec.OrderID).Error("failed to record pending compensation")
	}
}

// external приводит ошибку внешнего клиента к таксономии: ошибки без вида
// считаются недоступностью внешней системы.
func external(op string, err error) error {
	if domain.KindOf(err) != nil {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrExternalUnavailable, err)
}
