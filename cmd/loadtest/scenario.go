package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcsvc "github.com/vladislavdragonenkov/foodorder/internal/service/grpc"
)

// orderClient — методы API, которые дёргает нагрузочный сценарий.
type orderClient interface {
	AddCartItem(ctx context.Context, req *grpcsvc.AddCartItemRequest) (*grpcsvc.AddCartItemResponse, error)
	PlaceOrder(ctx context.Context, req *grpcsvc.PlaceOrderRequest) (*grpcsvc.PlaceOrderResponse, error)
	CancelOrder(ctx context.Context, req *grpcsvc.CancelOrderRequest) (*grpcsvc.CancelOrderResponse, error)
	CompleteOrder(ctx context.Context, req *grpcsvc.CompleteOrderRequest) (*grpcsvc.CompleteOrderResponse, error)
}

var _ orderClient = (*grpcsvc.Client)(nil)

// scenario — один заказ: корзина, оформление и, в зависимости от режима, отмена или завершение.
type scenario struct {
	client orderClient
	cfg    config
	col    *collector
}

// run выполняет сценарий от имени userID. Один пользователь не должен выполняться параллельно,
// иначе корзины сценариев смешиваются.
func (s scenario) run(userID int64, index int) error {
	started := time.Now()
	code := codes.OK
	defer func() { s.col.record(scenarioMethod, time.Since(started), code) }()

	restaurantID := int64(index%s.cfg.restaurants) + 1
	for item := 0; item < s.cfg.items; item++ {
		err := s.call("AddCartItem", func(ctx context.Context) error {
			_, err := s.client.AddCartItem(ctx, &grpcsvc.AddCartItemRequest{
				UserID:       userID,
				RestaurantID: restaurantID,
				MenuItemID:   int64(item + 1),
				Quantity:     1,
				UnitPrice:    s.cfg.unitPrice,
			})
			return err
		})
		if err != nil {
			code = status.Code(err)
			return err
		}
	}

	var orderID string
	err := s.call("PlaceOrder", func(ctx context.Context) error {
		resp, err := s.client.PlaceOrder(ctx, &grpcsvc.PlaceOrderRequest{
			UserID:            userID,
			RestaurantID:      restaurantID,
			DeliveryAddressID: userID,
		})
		if err == nil {
			orderID = resp.Order.ID
		}
		return err
	})
	if err != nil {
		code = status.Code(err)
		return err
	}
	if orderID == "" {
		code = codes.Internal
		return errors.New("place order response returned empty order id")
	}

	switch {
	case s.cfg.mode == modePlaceCancel || (s.cfg.mode == modePlace && shouldCancelScenario(index, s.cfg.cancelRate)):
		err = s.call("CancelOrder", func(ctx context.Context) error {
			_, err := s.client.CancelOrder(ctx, &grpcsvc.CancelOrderRequest{OrderID: orderID})
			return err
		})
	case s.cfg.mode == modePlaceComplete:
		err = s.call("CompleteOrder", func(ctx context.Context) error {
			_, err := s.client.CompleteOrder(ctx, &grpcsvc.CompleteOrderRequest{OrderID: orderID})
			return err
		})
	}
	if err != nil {
		code = status.Code(err)
		return fmt.Errorf("order %s: %w", orderID, err)
	}
	return nil
}

func (s scenario) call(method string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.timeout)
	defer cancel()

	err := fn(ctx)
	s.col.record(method, time.Since(start), status.Code(err))
	return err
}

func shouldCancelScenario(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}
