package order_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/service/cart"
	"github.com/vladislavdragonenkov/foodorder/internal/service/catalog"
	"github.com/vladislavdragonenkov/foodorder/internal/service/identity"
	"github.com/vladislavdragonenkov/foodorder/internal/service/order"
	"github.com/vladislavdragonenkov/foodorder/internal/service/saga"
	"github.com/vladislavdragonenkov/foodorder/internal/service/wallet"
	"github.com/vladislavdragonenkov/foodorder/internal/storage/memory"
)

const (
	userID       int64 = 1
	otherUserID  int64 = 2
	restaurantID int64 = 7
	addressID    int64 = 100
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// flakyOrders позволяет сорвать сохранение заказа.
type flakyOrders struct {
	domain.OrderRepository
	mu       sync.Mutex
	onCreate func(ctx context.Context) error
}

func (f *flakyOrders) setOnCreate(fn func(ctx context.Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCreate = fn
}

func (f *flakyOrders) Create(ctx context.Context, record domain.OrderRecord) error {
	f.mu.Lock()
	hook := f.onCreate
	f.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return f.OrderRepository.Create(ctx, record)
}

// stickyCart не может очистить корзину после оформления.
type stickyCart struct {
	*cart.Service
}

func (stickyCart) ClearForOrder(context.Context, int64, int64) error {
	return errors.New("cart store offline")
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// WorkflowTestSuite проверяет оформление, отмену и завершение заказов.
type WorkflowTestSuite struct {
	suite.Suite

	ctx           context.Context
	carts         *cart.Service
	orders        *flakyOrders
	timeline      domain.TimelineRepository
	outbox        *memory.OutboxRepository
	compensations domain.CompensationRepository
	wallet        *wallet.MockService
	catalog       *catalog.MockService
	identity      *identity.MockService
	service       *order.Service
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowTestSuite))
}

func (s *WorkflowTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "order-test")

	s.ctx = context.Background()
	s.carts = cart.NewService(memory.NewCartRepository(), logger, nil)
	s.orders = &flakyOrders{OrderRepository: memory.NewOrderRepository()}
	s.timeline = memory.NewTimelineRepository()
	s.outbox = memory.NewOutboxRepository()
	s.compensations = memory.NewCompensationRepository()

	s.wallet = wallet.NewMockService()
	s.wallet.SetBalance(userID, dec("100.00"))
	s.catalog = catalog.NewMockService()
	s.catalog.AddRestaurant(restaurantID, "Pho Bar", true)
	s.identity = identity.NewMockService()
	s.identity.AddUser(userID)
	s.identity.AddUser(otherUserID)
	s.identity.AddAddress(addressID, userID)

	clock := &stepClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := order.NewService(order.Dependencies{
		Cart:          s.carts,
		Orders:        s.orders,
		Wallet:        s.wallet,
		Catalog:       s.catalog,
		Identity:      s.identity,
		Timeline:      s.timeline,
		Outbox:        s.outbox,
		Compensations: s.compensations,
		Logger:        logger,
		Now:           clock.Now,
	})
	s.Require().NoError(err)
	s.service = svc
}

func (s *WorkflowTestSuite) fillCart() {
	_, err := s.carts.AddItem(s.ctx, userID, restaurantID, 10, 2, dec("5.00"))
	s.Require().NoError(err)
	_, err = s.carts.AddItem(s.ctx, userID, restaurantID, 11, 1, dec("3.00"))
	s.Require().NoError(err)
}

func (s *WorkflowTestSuite) cartSize() int {
	lines, err := s.carts.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	return len(lines)
}

func (s *WorkflowTestSuite) placeOrder() domain.Order {
	s.fillCart()
	placed, err := s.service.PlaceOrder(s.ctx, userID, restaurantID, addressID)
	s.Require().NoError(err)
	return placed
}

func (s *WorkflowTestSuite) TestPlaceOrder_Success() {
	s.fillCart()

	placed, err := s.service.PlaceOrder(s.ctx, userID, restaurantID, addressID)
	s.Require().NoError(err)

	s.Equal(domain.OrderStatusPlaced, placed.Status)
	s.True(placed.TotalPrice.Equal(dec("13.00")), "total %s", placed.TotalPrice)
	s.Require().Len(placed.Items, 2)
	s.Equal(int64(10), placed.Items[0].MenuItemID)
	s.EqualValues(2, placed.Items[0].Quantity)
	s.Equal(int64(11), placed.Items[1].MenuItemID)
	s.False(placed.SnapshotDegraded)
	s.Equal(addressID, placed.DeliveryAddressID)

	s.Zero(s.cartSize(), "cart must be cleared after placement")
	s.True(s.wallet.Balance(userID).Equal(dec("87.00")))

	stored, err := s.service.GetOrder(s.ctx, placed.ID)
	s.Require().NoError(err)
	s.Equal(placed.Items, stored.Items)

	events, err := s.service.Timeline(s.ctx, placed.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(domain.EventOrderPlaced, events[0].Type)

	pending := s.outbox.AllPending()
	s.Require().Len(pending, 1)
	s.Equal(domain.EventOrderPlaced, pending[0].EventType)
	s.Equal(placed.ID, pending[0].AggregateID)
}

func (s *WorkflowTestSuite) TestPlaceOrder_InsufficientFunds() {
	s.wallet.SetBalance(userID, dec("10.00"))
	s.fillCart()

	_, err := s.service.PlaceOrder(s.ctx, userID, restaurantID, addressID)
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)

	s.Equal(2, s.cartSize())
	s.True(s.wallet.Balance(userID).Equal(dec("10.00")))

	orders, err := s.service.GetOrdersByUserID(s.ctx, userID)
	s.Require().NoError(err)
	s.Empty(orders)
}

func (s *WorkflowTestSuite) TestPlaceOrder_PersistFailureReversesDebit() {
	s.fillCart()
	s.orders.setOnCreate(func(context.Context) error { return errors.New("disk full") })

	_, err := s.service.PlaceOrder(s.ctx, userID, restaurantID, addressID)
	s.Require().ErrorIs(err, domain.ErrOrderPersistence)
	s.Require().ErrorIs(err, domain.ErrPersistence)

	debits, credits := s.wallet.Calls()
	s.Equal(1, debits)
	s.Equal(1, credits)
	s.True(s.wallet.Balance(userID).Equal(dec("100.00")))

	orders, err := s.service.GetOrdersByUserID(s.ctx, userID)
	s.Require().NoError(err)
	s.Empty(orders)
	s.Equal(2, s.cartSize(), "cart survives a failed placement")

	pendingComp, err := s.compensations.ListPending(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pendingComp)
	s.Empty(s.outbox.AllPending())
}

func (s *WorkflowTestSuite) TestPlaceOrder_CompensationSurvivesCancelledRequest() {
	s.fillCart()
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.orders.setOnCreate(func(context.Context) error {
		cancel()
		return context.Canceled
	})

	_, err := s.service.PlaceOrder(ctx, userID, restaurantID, addressID)
	s.Require().ErrorIs(err, domain.ErrOrderPersistence)
	s.True(s.wallet.Balance(userID).Equal(dec("100.00")))
}

func (s *WorkflowTestSuite) TestPlaceOrder_FailedCompensationIsRecorded() {
	s.fillCart()
	s.orders.setOnCreate(func(context.Context) error { return errors.New("disk full") })
	s.wallet.SetCreditErr(fmt.Errorf("%w: wallet timeout", domain.ErrExternalUnavailable))

	_, err := s.service.PlaceOrder(s.ctx, userID, restaurantID, addressID)
	s.Require().ErrorIs(err, domain.ErrOrderPersistence)
	s.True(s.wallet.Balance(userID).Equal(dec("87.00")))

	pending, err := s.compensations.ListPending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(userID, pending[0].UserID)
	s.True(pending[0].Amount.Equal(dec("13.00")))
	s.Contains(pending[0].LastError, "wallet timeout")
}

func (s *WorkflowTestSuite) TestPlaceOrder_BreakerOpenedMidFlightStillRefunds() {
	breaker := saga.NewCircuitBreaker(1, time.Minute, nil)
	svc, err := order.NewService(order.Dependencies{
		Cart:          s.carts,
		Orders:        s.orders,
		Wallet:        saga.GuardedWallet{Next: s.wallet, Breaker: breaker},
		Catalog:       s.catalog,
		Identity:      s.identity,
		Compensations: s.compensations,
	})
	s.Require().NoError(err)

	s.fillCart()
	s.orders.setOnCreate(func(context.Context) error {
		// Параллельный запрос другого пользователя открывает breaker кошелька.
		_ = breaker.Execute("wallet.debit", func() error { return domain.ErrExternalUnavailable })
		return errors.New("disk full")
	})

	_, err = svc.PlaceOrder(s.ctx, userID, restaurantID, addressID)
	s.Require().ErrorIs(err, domain.ErrOrderPersistence)
	s.Equal(saga.CircuitOpen, breaker.State())

	debits, credits := s.wallet.Calls()
	s.Equal(1, debits)
	s.Equal(1, credits)
	s.True(s.wallet.Balance(userID).Equal(dec("100.00")))

	pending, err := s.compensations.ListPending(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *WorkflowTestSuite) TestPlaceOrder_CartClearFailureKeepsOrder() {
	logger, hook := test.NewNullLogger()
	svc, err := order.NewService(order.Dependencies{
		Cart:     stickyCart{Service: s.carts},
		Orders:   s.orders,
		Wallet:   s.wallet,
		Catalog:  s.catalog,
		Identity: s.identity,
		Logger:   logger.WithField("component", "order-test"),
	})
	s.Require().NoError(err)

	s.fillCart()
	placed, err := svc.PlaceOrder(s.ctx, userID, restaurantID, addressID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPlaced, placed.Status)
	s.True(placed.TotalPrice.Equal(dec("13.00")))

	debits, credits := s.wallet.Calls()
	s.Equal(1, debits)
	s.Zero(credits)
	s.True(s.wallet.Balance(userID).Equal(dec("87.00")))

	stored, err := svc.GetOrder(s.ctx, placed.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPlaced, stored.Status)
	s.Equal(2, s.cartSize(), "cart lines stay behind when clearing fails")

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.WarnLevel && entry.Message == "cart clear failed after order placed" {
			warned = true
			s.Equal(placed.ID, entry.Data["order_id"])
		}
	}
	s.True(warned, "expected a warning about the failed cart clear")
}

func (s *WorkflowTestSuite) TestPlaceOrder_EmptyCartSkipsWallet() {
	_, err := s.service.PlaceOrder(s.ctx, userID, restaurantID, addressID)
	s.Require().ErrorIs(err, domain.ErrEmptyCart)

	debits, _ := s.wallet.Calls()
	s.Zero(debits)
}

func (s *WorkflowTestSuite) TestPlaceOrder_RejectedBeforeDebit() {
	cases := []struct {
		name    string
		prepare func()
		address int64
		want    error
	}{
		{
			name:    "restaurant closed",
			prepare: func() { s.catalog.SetOpen(restaurantID, false) },
			address: addressID,
			want:    domain.ErrRestaurantClosed,
		},
		{
			name:    "restaurant missing",
			prepare: func() { s.catalog = catalog.NewMockService() },
			address: addressID,
			want:    domain.ErrRestaurantNotFound,
		},
		{
			name:    "address of another user",
			prepare: func() { s.identity.AddAddress(200, otherUserID) },
			address: 200,
			want:    domain.ErrAddressNotOwned,
		},
		{
			name:    "unknown address",
			prepare: func() {},
			address: 999,
			want:    domain.ErrAddressNotFound,
		},
		{
			name:    "catalog down",
			prepare: func() { s.catalog.Err = errors.New("connection refused") },
			address: addressID,
			want:    domain.ErrExternalUnavailable,
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()
			tc.prepare()
			s.rebuildService()
			s.fillCart()

			_, err := s.service.PlaceOrder(s.ctx, userID, restaurantID, tc.address)
			s.Require().ErrorIs(err, tc.want)

			debits, _ := s.wallet.Calls()
			s.Zero(debits)
			s.Equal(2, s.cartSize())
		})
	}
}

func (s *WorkflowTestSuite) TestPlaceOrder_UnknownUser() {
	_, err := s.carts.AddItem(s.ctx, 42, restaurantID, 10, 1, dec("5.00"))
	s.Require().NoError(err)

	_, err = s.service.PlaceOrder(s.ctx, 42, restaurantID, addressID)
	s.Require().ErrorIs(err, domain.ErrUserNotFound)
}

// rebuildService пересобирает сервис после подмены клиентов в тесте.
func (s *WorkflowTestSuite) rebuildService() {
	svc, err := order.NewService(order.Dependencies{
		Cart:          s.carts,
		Orders:        s.orders,
		Wallet:        s.wallet,
		Catalog:       s.catalog,
		Identity:      s.identity,
		Timeline:      s.timeline,
		Outbox:        s.outbox,
		Compensations: s.compensations,
	})
	s.Require().NoError(err)
	s.service = svc
}

func (s *WorkflowTestSuite) TestCancelOrder_Refunds() {
	placed := s.placeOrder()

	cancelled, err := s.service.CancelOrder(s.ctx, placed.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCancelled, cancelled.Status)
	s.True(s.wallet.Balance(userID).Equal(dec("100.00")))

	_, err = s.service.CancelOrder(s.ctx, placed.ID)
	s.Require().ErrorIs(err, domain.ErrInvalidStateTransition)
	s.True(s.wallet.Balance(userID).Equal(dec("100.00")), "second cancel must not refund")

	events, err := s.service.Timeline(s.ctx, placed.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(domain.EventOrderCancelled, events[1].Type)
}

func (s *WorkflowTestSuite) TestCancelOrder_CompletedIsRejected() {
	placed := s.placeOrder()

	completed, err := s.service.MarkOrderAsCompleted(s.ctx, placed.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCompleted, completed.Status)

	_, err = s.service.CancelOrder(s.ctx, placed.ID)
	s.Require().ErrorIs(err, domain.ErrInvalidStateTransition)

	_, credits := s.wallet.Calls()
	s.Zero(credits)

	stored, err := s.service.GetOrder(s.ctx, placed.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCompleted, stored.Status)
}

func (s *WorkflowTestSuite) TestCancelOrder_RefundFailureRestoresPlaced() {
	placed := s.placeOrder()
	s.wallet.SetCreditErr(errors.New("wallet offline"))

	_, err := s.service.CancelOrder(s.ctx, placed.ID)
	s.Require().ErrorIs(err, domain.ErrExternalUnavailable)

	stored, err := s.service.GetOrder(s.ctx, placed.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPlaced, stored.Status)
	s.True(s.wallet.Balance(userID).Equal(dec("87.00")))

	s.wallet.SetCreditErr(nil)
	_, err = s.service.CancelOrder(s.ctx, placed.ID)
	s.Require().NoError(err)
	s.True(s.wallet.Balance(userID).Equal(dec("100.00")))
}

func (s *WorkflowTestSuite) TestCancelOrder_NotFound() {
	_, err := s.service.CancelOrder(s.ctx, "missing")
	s.Require().ErrorIs(err, domain.ErrOrderNotFound)
}

func (s *WorkflowTestSuite) TestMarkOrderAsCompleted_OnlyFromPlaced() {
	placed := s.placeOrder()

	_, err := s.service.MarkOrderAsCompleted(s.ctx, placed.ID)
	s.Require().NoError(err)

	_, err = s.service.MarkOrderAsCompleted(s.ctx, placed.ID)
	s.Require().ErrorIs(err, domain.ErrInvalidStateTransition)
}

func (s *WorkflowTestSuite) TestConcurrentCancelRefundsOnce() {
	placed := s.placeOrder()

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.CancelOrder(s.ctx, placed.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, domain.ErrInvalidStateTransition)
	}
	s.Equal(1, succeeded)
	s.True(s.wallet.Balance(userID).Equal(dec("100.00")))
}

func (s *WorkflowTestSuite) TestQueries_NewestFirst() {
	first := s.placeOrder()
	second := s.placeOrder()

	byUser, err := s.service.GetOrdersByUserID(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(byUser, 2)
	s.Equal(second.ID, byUser[0].ID)
	s.Equal(first.ID, byUser[1].ID)

	byRestaurant, err := s.service.GetOrdersByRestaurantID(s.ctx, restaurantID)
	s.Require().NoError(err)
	s.Len(byRestaurant, 2)

	none, err := s.service.GetOrdersByUserID(s.ctx, otherUserID)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *WorkflowTestSuite) TestQueries_DegradedSnapshot() {
	now := time.Now().UTC()
	err := s.orders.Create(s.ctx, domain.OrderRecord{
		ID:           "legacy-1",
		UserID:       userID,
		RestaurantID: restaurantID,
		Status:       domain.OrderStatusPlaced,
		TotalPrice:   dec("4.00"),
		OrderTime:    now,
		UpdatedAt:    now,
		CartSnapshot: []byte("not a snapshot"),
	})
	s.Require().NoError(err)

	orders, err := s.service.GetOrdersByUserID(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.True(orders[0].SnapshotDegraded)
	s.Empty(orders[0].Items)
	s.True(orders[0].TotalPrice.Equal(dec("4.00")))
}

func (s *WorkflowTestSuite) TestQueries_ForeignRestaurantSnapshotIsDegraded() {
	placed := s.placeOrder()
	record, err := s.orders.Get(s.ctx, placed.ID)
	s.Require().NoError(err)

	record.ID = "moved-1"
	record.RestaurantID = restaurantID + 1
	s.Require().NoError(s.orders.Create(s.ctx, record))

	moved, err := s.service.GetOrder(s.ctx, "moved-1")
	s.Require().NoError(err)
	s.True(moved.SnapshotDegraded)
	s.Empty(moved.Items)

	original, err := s.service.GetOrder(s.ctx, placed.ID)
	s.Require().NoError(err)
	s.False(original.SnapshotDegraded)
	s.Len(original.Items, 2)
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := order.NewService(order.Dependencies{})
	if err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
