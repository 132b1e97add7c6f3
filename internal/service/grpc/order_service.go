// Package grpcsvc — gRPC API корзины и заказов поверх сервисов cart и order.
package grpcsvc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/pricing"
)

// CartService — операции корзины, которые публикует API.
type CartService interface {
	AddItem(ctx context.Context, userID, restaurantID, menuItemID int64, quantity int32, price decimal.Decimal) (domain.CartLine, error)
	UpdateQuantity(ctx context.Context, cartLineID string, delta int32) (domain.CartLine, bool, error)
	RemoveItem(ctx context.Context, cartLineID string) error
	ListByUser(ctx context.Context, userID int64) ([]domain.CartLine, error)
	ListByUserAndRestaurant(ctx context.Context, userID, restaurantID int64) ([]domain.CartLine, error)
}

// OrderService — операции над заказами, которые публикует API.
type OrderService interface {
	PlaceOrder(ctx context.Context, userID, restaurantID, addressID int64) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) (domain.Order, error)
	MarkOrderAsCompleted(ctx context.Context, orderID string) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]domain.Order, error)
	GetOrdersByRestaurantID(ctx context.Context, restaurantID int64) ([]domain.Order, error)
	Timeline(ctx context.Context, orderID string, eventTypes ...string) ([]domain.TimelineEvent, error)
}

// FoodOrderService реализует FoodOrderServiceServer.
type FoodOrderService struct {
	carts    CartService
	orders   OrderService
	validate *validator.Validate
	logger   *log.Entry
}

var _ FoodOrderServiceServer = (*FoodOrderService)(nil)

// NewFoodOrderService конструирует сервис с зависимостями.
func NewFoodOrderService(carts CartService, orders OrderService, logger *log.Entry) *FoodOrderService {
	if logger == nil {
		logger = log.New().WithField("component", "grpc")
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &FoodOrderService{carts: carts, orders: orders, validate: validate, logger: logger}
}

// AddCartItem добавляет позицию в корзину.
func (s *FoodOrderService) AddCartItem(ctx context.Context, req *AddCartItemRequest) (*AddCartItemResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "unit_price: %v", err)
	}

	line, err := s.carts.AddItem(ctx, req.UserID, req.RestaurantID, req.MenuItemID, req.Quantity, price)
	if err != nil {
		return nil, s.fail(ctx, MethodAddCartItem, err)
	}
	return &AddCartItemResponse{Item: toCartItem(line)}, nil
}

// UpdateCartItem меняет количество позиции на delta.
func (s *FoodOrderService) UpdateCartItem(ctx context.Context, req *UpdateCartItemRequest) (*UpdateCartItemResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	line, removed, err := s.carts.UpdateQuantity(ctx, req.CartLineID, req.Delta)
	if err != nil {
		return nil, s.fail(ctx, MethodUpdateCartItem, err)
	}
	if removed {
		return &UpdateCartItemResponse{Removed: true}, nil
	}
	item := toCartItem(line)
	return &UpdateCartItemResponse{Item: &item}, nil
}

// RemoveCartItem удаляет позицию из корзины.
func (s *FoodOrderService) RemoveCartItem(ctx context.Context, req *RemoveCartItemRequest) (*RemoveCartItemResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	if err := s.carts.RemoveItem(ctx, req.CartLineID); err != nil {
		return nil, s.fail(ctx, MethodRemoveCartItem, err)
	}
	return &RemoveCartItemResponse{}, nil
}

// ListCart возвращает корзину пользователя и её текущую стоимость.
func (s *FoodOrderService) ListCart(ctx context.Context, req *ListCartRequest) (*ListCartResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	var (
		lines []domain.CartLine
		err   error
	)
	if req.RestaurantID > 0 {
		lines, err = s.carts.ListByUserAndRestaurant(ctx, req.UserID, req.RestaurantID)
	} else {
		lines, err = s.carts.ListByUser(ctx, req.UserID)
	}
	if err != nil {
		return nil, s.fail(ctx, MethodListCart, err)
	}

	resp := &ListCartResponse{Items: make([]CartItem, 0, len(lines)), Total: decimal.Zero.String()}
	for _, line := range lines {
		resp.Items = append(resp.Items, toCartItem(line))
	}
	if len(lines) > 0 {
		total, err := pricing.Total(lines)
		if err != nil {
			return nil, s.fail(ctx, MethodListCart, err)
		}
		resp.Total = total.StringFixed(2)
	}
	return resp, nil
}

// PlaceOrder оформляет заказ из корзины.
func (s *FoodOrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	placed, err := s.orders.PlaceOrder(ctx, req.UserID, req.RestaurantID, req.DeliveryAddressID)
	if err != nil {
		return nil, s.fail(ctx, MethodPlaceOrder, err)
	}
	return &PlaceOrderResponse{Order: toOrder(placed)}, nil
}

// CancelOrder отменяет заказ и возвращает деньги.
func (s *FoodOrderService) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*CancelOrderResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	cancelled, err := s.orders.CancelOrder(ctx, req.OrderID)
	if err != nil {
		return nil, s.fail(ctx, MethodCancelOrder, err)
	}
	return &CancelOrderResponse{Order: toOrder(cancelled)}, nil
}

// CompleteOrder отмечает заказ доставленным.
func (s *FoodOrderService) CompleteOrder(ctx context.Context, req *CompleteOrderRequest) (*CompleteOrderResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	completed, err := s.orders.MarkOrderAsCompleted(ctx, req.OrderID)
	if err != nil {
		return nil, s.fail(ctx, MethodCompleteOrder, err)
	}
	return &CompleteOrderResponse{Order: toOrder(completed)}, nil
}

// GetOrder возвращает заказ вместе с историей событий.
func (s *FoodOrderService) GetOrder(ctx context.Context, req *GetOrderRequest) (*GetOrderResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	found, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, s.fail(ctx, MethodGetOrder, err)
	}

	resp := &GetOrderResponse{Order: toOrder(found), Timeline: []TimelineEvent{}}
	events, err := s.orders.Timeline(ctx, req.OrderID, req.TimelineTypes...)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", req.OrderID).Warn("failed to list timeline events")
		return resp, nil
	}
	for _, event := range events {
		resp.Timeline = append(resp.Timeline, TimelineEvent{
			Type:     event.Type,
			Reason:   event.Reason,
			UnixTime: event.Occurred.Unix(),
		})
	}
	return resp, nil
}

// ListUserOrders возвращает заказы пользователя, новые первыми.
func (s *FoodOrderService) ListUserOrders(ctx context.Context, req *ListUserOrdersRequest) (*ListOrdersResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	orders, err := s.orders.GetOrdersByUserID(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, MethodListUserOrders, err)
	}
	return toOrderList(orders), nil
}

// ListRestaurantOrders возвращает заказы ресторана, новые первыми.
func (s *FoodOrderService) ListRestaurantOrders(ctx context.Context, req *ListRestaurantOrdersRequest) (*ListOrdersResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	orders, err := s.orders.GetOrdersByRestaurantID(ctx, req.RestaurantID)
	if err != nil {
		return nil, s.fail(ctx, MethodListRestaurantOrders, err)
	}
	return toOrderList(orders), nil
}

// fail переводит ошибку в статус и кладёт вид ошибки в trailer.
func (s *FoodOrderService) fail(ctx context.Context, method string, err error) error {
	st, kind := toStatus(err)
	if kind != "" {
		// Вне gRPC-сервера (прямой вызов в тестах) trailer недоступен.
		_ = grpc.SetTrailer(ctx, metadata.Pairs(errorKindKey, kind))
	}

	entry := s.logger.WithError(err).WithFields(log.Fields{
		"method": method,
		"code":   st.Code().String(),
	})
	switch st.Code() {
	case codes.Internal, codes.Unavailable:
		entry.Error("request failed")
	default:
		entry.Debug("request rejected")
	}
	return st.Err()
}

func validateRequest[T any](validate *validator.Validate, req *T) error {
	if req == nil {
		return status.Error(codes.InvalidArgument, "request is required")
	}
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return status.Error(codes.InvalidArgument, strings.Join(parts, "; "))
}

func toCartItem(line domain.CartLine) CartItem {
	return CartItem{
		ID:           line.ID,
		UserID:       line.UserID,
		RestaurantID: line.RestaurantID,
		MenuItemID:   line.MenuItemID,
		Quantity:     line.Quantity,
		UnitPrice:    line.UnitPrice.String(),
	}
}

func toOrder(order domain.Order) Order {
	items := make([]OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.String(),
		})
	}
	return Order{
		ID:                order.ID,
		UserID:            order.UserID,
		RestaurantID:      order.RestaurantID,
		DeliveryAddressID: order.DeliveryAddressID,
		Status:            string(order.Status),
		TotalPrice:        order.TotalPrice.StringFixed(2),
		OrderTime:         order.OrderTime,
		Items:             items,
		SnapshotDegraded:  order.SnapshotDegraded,
	}
}

func toOrderList(orders []domain.Order) *ListOrdersResponse {
	resp := &ListOrdersResponse{Orders: make([]Order, 0, len(orders))}
	for _, order := range orders {
		resp.Orders = append(resp.Orders, toOrder(order))
	}
	return resp
}
