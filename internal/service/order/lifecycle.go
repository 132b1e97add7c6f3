package order

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

// CancelOrder переводит заказ placed → cancelled и возвращает деньги в кошелёк.
// Если возврат не удался, статус откатывается обратно в placed и возвращается ошибка кошелька.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	logger := s.logger.WithField("order_id", orderID)

	current, err := s.transition(ctx, orderID, domain.OrderStatusCancelled)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.refund(ctx, current); err != nil {
		s.rollbackCancel(ctx, current, err, logger)
		return domain.Order{}, err
	}

	s.emit(ctx, current, domain.EventOrderCancelled, "cancelled by request")
	s.metrics.RecordStatusChange(string(domain.OrderStatusCancelled))
	logger.WithField("refund", current.TotalPrice.String()).Info("order cancelled")

	return s.toOrder(current), nil
}

// MarkOrderAsCompleted переводит заказ placed → completed.
func (s *Service) MarkOrderAsCompleted(ctx context.Context, orderID string) (domain.Order, error) {
	updated, err := s.transition(ctx, orderID, domain.OrderStatusCompleted)
	if err != nil {
		return domain.Order{}, err
	}

	s.emit(ctx, updated, domain.EventOrderCompleted, "")
	s.metrics.RecordStatusChange(string(domain.OrderStatusCompleted))
	s.logger.WithField("order_id", orderID).Info("order completed")

	return s.toOrder(updated), nil
}

// transition проверяет допустимость перехода и меняет статус через compare-and-set,
// поэтому из двух конкурентных переходов проходит только один.
func (s *Service) transition(ctx context.Context, orderID string, to domain.OrderStatus) (domain.OrderRecord, error) {
	defer s.observe("transition", time.Now())

	record, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	if !record.Status.CanTransitionTo(to) {
		return domain.OrderRecord{}, fmt.Errorf("%w: order %s is %s, cannot become %s",
			domain.ErrOrderUpdate, orderID, record.Status, to)
	}

	return s.orders.UpdateStatus(ctx, orderID, record.Status, to)
}

func (s *Service) refund(ctx context.Context, record domain.OrderRecord) error {
	defer s.observe("refund", time.Now())

	if err := s.wallet.Credit(ctx, record.UserID, record.TotalPrice); err != nil {
		return external("wallet.credit", err)
	}
	return nil
}

// rollbackCancel возвращает заказ в placed после неудачного возврата денег.
// Если и это не удалось, заказ остаётся отменённым без возврата: такой долг записывается на сверку.
func (s *Service) rollbackCancel(ctx context.Context, record domain.OrderRecord, refundErr error, logger *log.Entry) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	restored, err := s.orders.UpdateStatus(cctx, record.ID, domain.OrderStatusCancelled, domain.OrderStatusPlaced)
	if err == nil {
		s.metrics.RecordCompensation("applied")
		s.appendTimeline(cctx, restored, domain.EventOrderStatusChanged, "refund failed, order restored to placed")
		logger.WithError(refundErr).Warn("refund failed, cancellation rolled back")
		return
	}

	s.metrics.RecordCompensation("failed")
	logger.WithError(err).WithFields(log.Fields{
		"refund_error": refundErr.Error(),
		"amount":       record.TotalPrice.String(),
	}).Error("cancellation rollback failed, reconciliation required")

	s.recordCompensation(cctx, domain.CompensationRecord{
		OrderID:   record.ID,
		UserID:    record.UserID,
		Amount:    record.TotalPrice,
		Reason:    "refund of cancelled order",
		LastError: refundErr.Error(),
	}, logger)
}
