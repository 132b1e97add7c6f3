package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName — полное имя gRPC-сервиса.
const ServiceName = "foodorder.v1.FoodOrderService"

const (
	MethodAddCartItem          = "/" + ServiceName + "/AddCartItem"
	MethodUpdateCartItem       = "/" + ServiceName + "/UpdateCartItem"
	MethodRemoveCartItem       = "/" + ServiceName + "/RemoveCartItem"
	MethodListCart             = "/" + ServiceName + "/ListCart"
	MethodPlaceOrder           = "/" + ServiceName + "/PlaceOrder"
	MethodCancelOrder          = "/" + ServiceName + "/CancelOrder"
	MethodCompleteOrder        = "/" + ServiceName + "/CompleteOrder"
	MethodGetOrder             = "/" + ServiceName + "/GetOrder"
	MethodListUserOrders       = "/" + ServiceName + "/ListUserOrders"
	MethodListRestaurantOrders = "/" + ServiceName + "/ListRestaurantOrders"
)

// FoodOrderServiceServer — серверная часть API корзины и заказов.
type FoodOrderServiceServer interface {
	AddCartItem(context.Context, *AddCartItemRequest) (*AddCartItemResponse, error)
	UpdateCartItem(context.Context, *UpdateCartItemRequest) (*UpdateCartItemResponse, error)
	RemoveCartItem(context.Context, *RemoveCartItemRequest) (*RemoveCartItemResponse, error)
	ListCart(context.Context, *ListCartRequest) (*ListCartResponse, error)
	PlaceOrder(context.Context, *PlaceOrderRequest) (*PlaceOrderResponse, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*CancelOrderResponse, error)
	CompleteOrder(context.Context, *CompleteOrderRequest) (*CompleteOrderResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*GetOrderResponse, error)
	ListUserOrders(context.Context, *ListUserOrdersRequest) (*ListOrdersResponse, error)
	ListRestaurantOrders(context.Context, *ListRestaurantOrdersRequest) (*ListOrdersResponse, error)
}

// RegisterFoodOrderServiceServer регистрирует реализацию на gRPC-сервере.
func RegisterFoodOrderServiceServer(registrar grpc.ServiceRegistrar, srv FoodOrderServiceServer) {
	registrar.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FoodOrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddCartItem", Handler: unaryHandler(MethodAddCartItem, FoodOrderServiceServer.AddCartItem)},
		{MethodName: "UpdateCartItem", Handler: unaryHandler(MethodUpdateCartItem, FoodOrderServiceServer.UpdateCartItem)},
		{MethodName: "RemoveCartItem", Handler: unaryHandler(MethodRemoveCartItem, FoodOrderServiceServer.RemoveCartItem)},
		{MethodName: "ListCart", Handler: unaryHandler(MethodListCart, FoodOrderServiceServer.ListCart)},
		{MethodName: "PlaceOrder", Handler: unaryHandler(MethodPlaceOrder, FoodOrderServiceServer.PlaceOrder)},
		{MethodName: "CancelOrder", Handler: unaryHandler(MethodCancelOrder, FoodOrderServiceServer.CancelOrder)},
		{MethodName: "CompleteOrder", Handler: unaryHandler(MethodCompleteOrder, FoodOrderServiceServer.CompleteOrder)},
		{MethodName: "GetOrder", Handler: unaryHandler(MethodGetOrder, FoodOrderServiceServer.GetOrder)},
		{MethodName: "ListUserOrders", Handler: unaryHandler(MethodListUserOrders, FoodOrderServiceServer.ListUserOrders)},
		{MethodName: "ListRestaurantOrders", Handler: unaryHandler(MethodListRestaurantOrders, FoodOrderServiceServer.ListRestaurantOrders)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "foodorder/v1/food_order.proto",
}

// unaryHandler строит grpc.MethodHandler для метода с запросом Req и ответом Resp.
func unaryHandler[Req, Resp any](fullMethod string, call func(FoodOrderServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(FoodOrderServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
