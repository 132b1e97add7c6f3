package grpcsvc

import "time"

// CartItem — позиция корзины в ответах API. Цены передаются десятичной строкой.
type CartItem struct {
	ID           string `json:"id"`
	UserID       int64  `json:"user_id"`
	RestaurantID int64  `json:"restaurant_id"`
	MenuItemID   int64  `json:"menu_item_id"`
	Quantity     int32  `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
}

type AddCartItemRequest struct {
	UserID       int64  `json:"user_id" validate:"gt=0"`
	RestaurantID int64  `json:"restaurant_id" validate:"gt=0"`
	MenuItemID   int64  `json:"menu_item_id" validate:"gt=0"`
	Quantity     int32  `json:"quantity" validate:"gt=0"`
	UnitPrice    string `json:"unit_price" validate:"required,numeric"`
}

type AddCartItemResponse struct {
	Item CartItem `json:"item"`
}

type UpdateCartItemRequest struct {
	CartLineID string `json:"cart_line_id" validate:"required"`
	Delta      int32  `json:"delta"`
}

type UpdateCartItemResponse struct {
	// Item пуст, если позиция удалена.
	Item    *CartItem `json:"item,omitempty"`
	Removed bool      `json:"removed"`
}

type RemoveCartItemRequest struct {
	CartLineID string `json:"cart_line_id" validate:"required"`
}

type RemoveCartItemResponse struct{}

// ListCartRequest — корзина пользователя; RestaurantID ограничивает выборку одним рестораном.
type ListCartRequest struct {
	UserID       int64 `json:"user_id" validate:"gt=0"`
	RestaurantID int64 `json:"restaurant_id,omitempty" validate:"gte=0"`
}

type ListCartResponse struct {
	Items []CartItem `json:"items"`
	Total string     `json:"total"`
}

type PlaceOrderRequest struct {
	UserID            int64 `json:"user_id" validate:"gt=0"`
	RestaurantID      int64 `json:"restaurant_id" validate:"gt=0"`
	DeliveryAddressID int64 `json:"delivery_address_id" validate:"gt=0"`
}

type PlaceOrderResponse struct {
	Order Order `json:"order"`
}

type CancelOrderRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

type CancelOrderResponse struct {
	Order Order `json:"order"`
}

type CompleteOrderRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

type CompleteOrderResponse struct {
	Order Order `json:"order"`
}

type GetOrderRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	// TimelineTypes ограничивает историю заказа указанными типами событий.
	TimelineTypes []string `json:"timeline_types,omitempty" validate:"omitempty,dive,oneof=OrderPlaced OrderCancelled OrderCompleted OrderStatusChanged"`
}

type GetOrderResponse struct {
	Order    Order           `json:"order"`
	Timeline []TimelineEvent `json:"timeline"`
}

type ListUserOrdersRequest struct {
	UserID int64 `json:"user_id" validate:"gt=0"`
}

type ListRestaurantOrdersRequest struct {
	RestaurantID int64 `json:"restaurant_id" validate:"gt=0"`
}

type ListOrdersResponse struct {
	Orders []Order `json:"orders"`
}

// Order — заказ в ответах API.
type Order struct {
	ID                string      `json:"id"`
	UserID            int64       `json:"user_id"`
	RestaurantID      int64       `json:"restaurant_id"`
	DeliveryAddressID int64       `json:"delivery_address_id"`
	Status            string      `json:"status"`
	TotalPrice        string      `json:"total_price"`
	OrderTime         time.Time   `json:"order_time"`
	Items             []OrderItem `json:"items"`
	SnapshotDegraded  bool        `json:"snapshot_degraded,omitempty"`
}

type OrderItem struct {
	MenuItemID int64  `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
}

type TimelineEvent struct {
	Type     string `json:"type"`
	Reason   string `json:"reason,omitempty"`
	UnixTime int64  `json:"unix_time"`
}
