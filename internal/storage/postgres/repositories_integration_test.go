package postgres

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

func TestMigrationStatus_AfterUp(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)

	status, err := store.MigrationStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), status.CurrentVersion)
	require.Empty(t, status.Pending)
}

func TestCartRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCartRepository(store)
	ctx := context.Background()

	first, err := repo.AddOrMerge(ctx, domain.CartLine{
		UserID: 1, RestaurantID: 7, MenuItemID: 10, Quantity: 2, UnitPrice: decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	merged, err := repo.AddOrMerge(ctx, domain.CartLine{
		UserID: 1, RestaurantID: 7, MenuItemID: 10, Quantity: 1, UnitPrice: decimal.RequireFromString("4.50"),
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, merged.ID)
	require.EqualValues(t, 3, merged.Quantity)
	require.True(t, merged.UnitPrice.Equal(decimal.RequireFromString("4.50")))

	_, err = repo.AddOrMerge(ctx, domain.CartLine{
		UserID: 1, RestaurantID: 8, MenuItemID: 20, Quantity: 1, UnitPrice: decimal.RequireFromString("1.00"),
	})
	require.ErrorIs(t, err, domain.ErrDifferentRestaurant)

	second, err := repo.AddOrMerge(ctx, domain.CartLine{
		UserID: 1, RestaurantID: 7, MenuItemID: 11, Quantity: 1, UnitPrice: decimal.RequireFromString("3.00"),
	})
	require.NoError(t, err)

	lines, err := repo.ListByUserAndRestaurant(ctx, 1, 7)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, first.ID, lines[0].ID)

	_, removed, err := repo.AdjustQuantity(ctx, second.ID, -1)
	require.NoError(t, err)
	require.True(t, removed)
	_, err = repo.Get(ctx, second.ID)
	require.ErrorIs(t, err, domain.ErrCartLineNotFound)

	require.NoError(t, repo.DeleteByUserAndRestaurant(ctx, 1, 7))
	require.NoError(t, repo.DeleteByUserAndRestaurant(ctx, 1, 7))
	lines, err = repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestCartRepository_PostgresRejectsQuantityOverflow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCartRepository(store)
	ctx := context.Background()

	line, err := repo.AddOrMerge(ctx, domain.CartLine{
		UserID: 5, RestaurantID: 7, MenuItemID: 10, Quantity: math.MaxInt32, UnitPrice: decimal.RequireFromString("1.00"),
	})
	require.NoError(t, err)

	_, err = repo.AddOrMerge(ctx, domain.CartLine{
		UserID: 5, RestaurantID: 7, MenuItemID: 10, Quantity: 1, UnitPrice: decimal.RequireFromString("1.00"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = repo.AdjustQuantity(ctx, line.ID, math.MaxInt32)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	stored, err := repo.Get(ctx, line.ID)
	require.NoError(t, err)
	require.EqualValues(t, math.MaxInt32, stored.Quantity)
}

func TestOrderRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	order := domain.OrderRecord{
		ID:                "order-1",
		UserID:            1,
		RestaurantID:      7,
		DeliveryAddressID: 3,
		Status:            domain.OrderStatusPlaced,
		TotalPrice:        decimal.RequireFromString("13.00"),
		OrderTime:         now,
		CartSnapshot:      []byte("v2:blob"),
	}
	require.NoError(t, repo.Create(ctx, order))
	require.ErrorIs(t, repo.Create(ctx, order), domain.ErrOrderAlreadyExists)

	stored, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, stored.TotalPrice.Equal(order.TotalPrice))
	require.Equal(t, order.CartSnapshot, stored.CartSnapshot)

	byUser, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byUser, 1)

	updated, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPlaced, domain.OrderStatusCompleted)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCompleted, updated.Status)

	_, err = repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPlaced, domain.OrderStatusCancelled)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	_, err = repo.UpdateStatus(ctx, "missing", domain.OrderStatusPlaced, domain.OrderStatusCancelled)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOutboxAndCompensation_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()

	outbox := NewOutboxRepository(store)
	msg, err := outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: "order", AggregateID: "order-1", EventType: domain.EventOrderPlaced, Payload: []byte(`{}`),
	})
	require.NoError(t, err)

	stats, err := outbox.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.PendingCount)

	require.NoError(t, outbox.MarkSent(ctx, msg.ID))
	require.ErrorIs(t, outbox.MarkSent(ctx, "missing"), domain.ErrOutboxPublish)
	require.ErrorIs(t, outbox.MarkFailed(ctx, msg.ID), domain.ErrOutboxPublish)

	_, err = outbox.Enqueue(ctx, domain.OutboxMessage{AggregateType: "order", EventType: domain.EventOrderPlaced})
	require.ErrorIs(t, err, domain.ErrInvalidOutboxMessage)

	comp := NewCompensationRepository(store)
	rec, err := comp.Record(ctx, domain.CompensationRecord{
		OrderID: "order-1", UserID: 1, Amount: decimal.RequireFromString("13.00"), Reason: "persist failed",
	})
	require.NoError(t, err)
	require.NoError(t, comp.MarkAttempt(ctx, rec.ID, "wallet down"))

	pending, err := comp.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, 1, pending[0].Attempts)

	require.NoError(t, comp.MarkResolved(ctx, rec.ID))
	pending, err = comp.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestTimelineRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, NewOrderRepository(store).Create(ctx, domain.OrderRecord{
		ID: "order-tl", UserID: 1, RestaurantID: 7, DeliveryAddressID: 3, Status: domain.OrderStatusPlaced,
		TotalPrice: decimal.RequireFromString("13.00"), OrderTime: now, CartSnapshot: []byte("v2:blob"),
	}))

	timeline := NewTimelineRepository(store)
	require.NoError(t, timeline.Append(ctx, domain.TimelineEvent{OrderID: "order-tl", Type: domain.EventOrderPlaced, Occurred: now}))
	require.NoError(t, timeline.Append(ctx, domain.TimelineEvent{
		OrderID: "order-tl", Type: domain.EventOrderCancelled, Reason: "customer", Occurred: now.Add(time.Second),
	}))
	require.ErrorIs(t, timeline.Append(ctx, domain.TimelineEvent{OrderID: "missing", Type: domain.EventOrderPlaced}), domain.ErrOrderNotFound)
	require.ErrorIs(t, timeline.Append(ctx, domain.TimelineEvent{OrderID: "order-tl", Type: "Teleported"}), domain.ErrInvalidTimelineEvent)

	events, err := timeline.List(ctx, "order-tl")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.EventOrderPlaced, events[0].Type)

	cancelled, err := timeline.List(ctx, "order-tl", domain.EventOrderCancelled)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	require.Equal(t, "customer", cancelled[0].Reason)
}
