package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client — клиент FoodOrderService. Ошибки сервера возвращаются с доменным видом,
// поэтому errors.Is(err, domain.ErrInsufficientFunds) работает и по сети.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient создаёт клиента поверх установленного соединения.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) AddCartItem(ctx context.Context, req *AddCartItemRequest) (*AddCartItemResponse, error) {
	return invoke[AddCartItemResponse](ctx, c.conn, MethodAddCartItem, req)
}

func (c *Client) UpdateCartItem(ctx context.Context, req *UpdateCartItemRequest) (*UpdateCartItemResponse, error) {
	return invoke[UpdateCartItemResponse](ctx, c.conn, MethodUpdateCartItem, req)
}

func (c *Client) RemoveCartItem(ctx context.Context, req *RemoveCartItemRequest) (*RemoveCartItemResponse, error) {
	return invoke[RemoveCartItemResponse](ctx, c.conn, MethodRemoveCartItem, req)
}

func (c *Client) ListCart(ctx context.Context, req *ListCartRequest) (*ListCartResponse, error) {
	return invoke[ListCartResponse](ctx, c.conn, MethodListCart, req)
}

func (c *Client) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	return invoke[PlaceOrderResponse](ctx, c.conn, MethodPlaceOrder, req)
}

func (c *Client) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*CancelOrderResponse, error) {
	return invoke[CancelOrderResponse](ctx, c.conn, MethodCancelOrder, req)
}

func (c *Client) CompleteOrder(ctx context.Context, req *CompleteOrderRequest) (*CompleteOrderResponse, error) {
	return invoke[CompleteOrderResponse](ctx, c.conn, MethodCompleteOrder, req)
}

func (c *Client) GetOrder(ctx context.Context, req *GetOrderRequest) (*GetOrderResponse, error) {
	return invoke[GetOrderResponse](ctx, c.conn, MethodGetOrder, req)
}

func (c *Client) ListUserOrders(ctx context.Context, req *ListUserOrdersRequest) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c.conn, MethodListUserOrders, req)
}

func (c *Client) ListRestaurantOrders(ctx context.Context, req *ListRestaurantOrdersRequest) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c.conn, MethodListRestaurantOrders, req)
}

func invoke[Resp any](ctx context.Context, conn grpc.ClientConnInterface, method string, req any) (*Resp, error) {
	out := new(Resp)
	var trailer metadata.MD
	if err := conn.Invoke(ctx, method, req, out, grpc.CallContentSubtype(CodecName), grpc.Trailer(&trailer)); err != nil {
		return nil, FromStatus(err, trailer)
	}
	return out, nil
}
