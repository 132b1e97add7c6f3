package grpcsvc_test

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/service/cart"
	"github.com/vladislavdragonenkov/foodorder/internal/service/catalog"
	grpcsvc "github.com/vladislavdragonenkov/foodorder/internal/service/grpc"
	"github.com/vladislavdragonenkov/foodorder/internal/service/identity"
	"github.com/vladislavdragonenkov/foodorder/internal/service/order"
	"github.com/vladislavdragonenkov/foodorder/internal/service/wallet"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/memory"
)

const bufSize = 1024 * 1024

type testEnv struct {
	client *grpcsvc.Client
	wallet *wallet.MockService
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	return logger.WithField("component", "test")
}

func newTestServer(t *testing.T) testEnv {
	t.Helper()

	logger := loggerForTests()
	carts := cart.NewService(memory.NewCartRepository(), logger, nil)

	w := wallet.NewMockService()
	w.SetBalance(1, decimal.RequireFromString("100.00"))
	cat := catalog.NewMockService()
	cat.AddRestaurant(7, "Noodle House", true)
	ids := identity.NewMockService()
	ids.AddUser(1)
	ids.AddAddress(100, 1)

	orders, err := order.NewService(order.Dependencies{
		Cart:     carts,
		Orders:   memory.NewOrderRepository(),
		Wallet:   w,
		Catalog:  cat,
		Identity: ids,
		Timeline: memory.NewTimelineRepository(),
		Logger:   logger,
	})
	require.NoError(t, err)

	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer()
	grpcsvc.RegisterFoodOrderServiceServer(server, grpcsvc.NewFoodOrderService(carts, orders, logger))
	go func() {
		if err := server.Serve(listener); err != nil {
			logger.WithError(err).Error("grpc serve failed")
		}
	}()

	dialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})

	return testEnv{client: grpcsvc.NewClient(conn), wallet: w}
}

func fillCart(t *testing.T, client *grpcsvc.Client) {
	t.Helper()
	ctx := context.Background()
	_, err := client.AddCartItem(ctx, &grpcsvc.AddCartItemRequest{UserID: 1, RestaurantID: 7, MenuItemID: 10, Quantity: 2, UnitPrice: "5.00"})
	require.NoError(t, err)
	_, err = client.AddCartItem(ctx, &grpcsvc.AddCartItemRequest{UserID: 1, RestaurantID: 7, MenuItemID: 11, Quantity: 1, UnitPrice: "3.00"})
	require.NoError(t, err)
}

func TestPlaceOrder_EndToEnd(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	fillCart(t, env.client)

	cartResp, err := env.client.ListCart(ctx, &grpcsvc.ListCartRequest{UserID: 1})
	require.NoError(t, err)
	require.Len(t, cartResp.Items, 2)
	require.Equal(t, "13.00", cartResp.Total)

	placed, err := env.client.PlaceOrder(ctx, &grpcsvc.PlaceOrderRequest{UserID: 1, RestaurantID: 7, DeliveryAddressID: 100})
	require.NoError(t, err)
	require.Equal(t, "placed", placed.Order.Status)
	require.Equal(t, "13.00", placed.Order.TotalPrice)
	require.Len(t, placed.Order.Items, 2)

	cartResp, err = env.client.ListCart(ctx, &grpcsvc.ListCartRequest{UserID: 1})
	require.NoError(t, err)
	require.Empty(t, cartResp.Items)

	got, err := env.client.GetOrder(ctx, &grpcsvc.GetOrderRequest{OrderID: placed.Order.ID})
	require.NoError(t, err)
	require.Equal(t, placed.Order.ID, got.Order.ID)
	require.Len(t, got.Timeline, 1)
	require.Equal(t, domain.EventOrderPlaced, got.Timeline[0].Type)

	filtered, err := env.client.GetOrder(ctx, &grpcsvc.GetOrderRequest{
		OrderID: placed.Order.ID, TimelineTypes: []string{domain.EventOrderCancelled},
	})
	require.NoError(t, err)
	require.Empty(t, filtered.Timeline)

	list, err := env.client.ListUserOrders(ctx, &grpcsvc.ListUserOrdersRequest{UserID: 1})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)

	byRestaurant, err := env.client.ListRestaurantOrders(ctx, &grpcsvc.ListRestaurantOrdersRequest{RestaurantID: 7})
	require.NoError(t, err)
	require.Len(t, byRestaurant.Orders, 1)
}

func TestPlaceOrder_InsufficientFundsKeepsKind(t *testing.T) {
	env := newTestServer(t)
	env.wallet.SetBalance(1, decimal.RequireFromString("10.00"))
	fillCart(t, env.client)

	_, err := env.client.PlaceOrder(context.Background(), &grpcsvc.PlaceOrderRequest{UserID: 1, RestaurantID: 7, DeliveryAddressID: 100})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestCancelCompletedOrder_InvalidTransition(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()
	fillCart(t, env.client)

	placed, err := env.client.PlaceOrder(ctx, &grpcsvc.PlaceOrderRequest{UserID: 1, RestaurantID: 7, DeliveryAddressID: 100})
	require.NoError(t, err)

	completed, err := env.client.CompleteOrder(ctx, &grpcsvc.CompleteOrderRequest{OrderID: placed.Order.ID})
	require.NoError(t, err)
	require.Equal(t, "completed", completed.Order.Status)

	_, err = env.client.CancelOrder(ctx, &grpcsvc.CancelOrderRequest{OrderID: placed.Order.ID})
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestCartItemLifecycle(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()

	added, err := env.client.AddCartItem(ctx, &grpcsvc.AddCartItemRequest{UserID: 1, RestaurantID: 7, MenuItemID: 10, Quantity: 1, UnitPrice: "4.50"})
	require.NoError(t, err)

	updated, err := env.client.UpdateCartItem(ctx, &grpcsvc.UpdateCartItemRequest{CartLineID: added.Item.ID, Delta: 2})
	require.NoError(t, err)
	require.False(t, updated.Removed)
	require.EqualValues(t, 3, updated.Item.Quantity)

	updated, err = env.client.UpdateCartItem(ctx, &grpcsvc.UpdateCartItemRequest{CartLineID: added.Item.ID, Delta: -3})
	require.NoError(t, err)
	require.True(t, updated.Removed)
	require.Nil(t, updated.Item)

	_, err = env.client.RemoveCartItem(ctx, &grpcsvc.RemoveCartItemRequest{CartLineID: added.Item.ID})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.client.AddCartItem(ctx, &grpcsvc.AddCartItemRequest{UserID: 1, RestaurantID: 7, MenuItemID: 10, Quantity: 1, UnitPrice: "4.50"})
	require.NoError(t, err)
	_, err = env.client.AddCartItem(ctx, &grpcsvc.AddCartItemRequest{UserID: 1, RestaurantID: 8, MenuItemID: 20, Quantity: 1, UnitPrice: "1.00"})
	require.ErrorIs(t, err, domain.ErrDifferentRestaurant)
}

func TestRequestValidation(t *testing.T) {
	env := newTestServer(t)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{
			name: "zero quantity",
			call: func() error {
				_, err := env.client.AddCartItem(ctx, &grpcsvc.AddCartItemRequest{UserID: 1, RestaurantID: 7, MenuItemID: 10, UnitPrice: "1.00"})
				return err
			},
		},
		{
			name: "non numeric price",
			call: func() error {
				_, err := env.client.AddCartItem(ctx, &grpcsvc.AddCartItemRequest{UserID: 1, RestaurantID: 7, MenuItemID: 10, Quantity: 1, UnitPrice: "abc"})
				return err
			},
		},
		{
			name: "missing address",
			call: func() error {
				_, err := env.client.PlaceOrder(ctx, &grpcsvc.PlaceOrderRequest{UserID: 1, RestaurantID: 7})
				return err
			},
		},
		{
			name: "missing order id",
			call: func() error {
				_, err := env.client.GetOrder(ctx, &grpcsvc.GetOrderRequest{})
				return err
			},
		},
		{
			name: "unknown timeline type",
			call: func() error {
				_, err := env.client.GetOrder(ctx, &grpcsvc.GetOrderRequest{OrderID: "o1", TimelineTypes: []string{"Teleported"}})
				return err
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			require.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	env := newTestServer(t)

	_, err := env.client.GetOrder(context.Background(), &grpcsvc.GetOrderRequest{OrderID: "missing"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
