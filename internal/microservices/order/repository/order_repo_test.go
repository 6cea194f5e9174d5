package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikolovlazar/tracing-demos/internal/common/db/dbtest"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/migrations"
)

func newRepo(t *testing.T) OrderRepositoryInterface {
	return NewOrderRepository(dbtest.NewPool(t, migrations.FS))
}

func newOrder(t *testing.T, repo OrderRepositoryInterface) dao.Order {
	t.Helper()
	o, err := repo.Create(context.Background(), dao.Order{
		CustomerID:      "cust-1",
		DeliveryAddress: "1 Main St",
		Items: []dao.OrderItem{
			{ItemID: "1", Name: "Margherita Pizza", Quantity: 1, Price: decimal.RequireFromString("12.99")},
			{ItemID: "2", Name: "Caesar Salad", Quantity: 2, Price: decimal.RequireFromString("8.99")},
		},
	}, "order-service")
	require.NoError(t, err)
	return o
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	o := newOrder(t, repo)
	assert.Equal(t, dao.StatusPending, o.Status)
	require.Len(t, o.Items, 2)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", got.DeliveryAddress)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Items[1].Price.Equal(decimal.RequireFromString("8.99")))
	assert.Nil(t, got.DeliveryID)

	_, err = repo.Get(ctx, o.ID+100)
	assert.ErrorIs(t, err, dao.ErrOrderNotFound)

	list, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOrderRepository_TransitionGuard(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	o := newOrder(t, repo)

	_, applied, err := repo.Transition(ctx, o.ID, dao.StatusUpdate{Status: dao.StatusAwaitingKitchen, ChangedBy: "order-service"})
	require.NoError(t, err)
	assert.True(t, applied)

	cur, applied, err := repo.Transition(ctx, o.ID, dao.StatusUpdate{Status: dao.StatusInventoryUnavailable, ChangedBy: "order-service"})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, dao.StatusAwaitingKitchen, cur.Status)

	_, applied, err = repo.Transition(ctx, o.ID, dao.StatusUpdate{Status: dao.StatusAwaitingKitchen, ChangedBy: "order-service"})
	require.NoError(t, err)
	assert.True(t, applied)

	_, _, err = repo.Transition(ctx, o.ID+100, dao.StatusUpdate{Status: dao.StatusReady})
	assert.ErrorIs(t, err, dao.ErrOrderNotFound)

	timeline, err := repo.Timeline(ctx, o.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	assert.Equal(t, dao.StatusPending, timeline[0].Status)
	assert.Equal(t, "order created", timeline[0].Notes)
}

func TestOrderRepository_TransitionKeepsDeliveryFields(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	o := newOrder(t, repo)

	deliveryID := int64(9)
	driverID, driverName := "driver-1", "John Doe"
	eta := time.Now().Add(20 * time.Minute).UTC().Truncate(time.Microsecond)
	_, applied, err := repo.Transition(ctx, o.ID, dao.StatusUpdate{
		Status:                dao.StatusShipped,
		ChangedBy:             "order-service",
		DeliveryID:            &deliveryID,
		DriverID:              &driverID,
		DriverName:            &driverName,
		EstimatedDeliveryTime: &eta,
	})
	require.NoError(t, err)
	require.True(t, applied)

	at := eta.Add(-time.Minute)
	got, applied, err := repo.Transition(ctx, o.ID, dao.StatusUpdate{Status: dao.StatusDelivered, ChangedBy: "order-service", ActualDeliveryTime: &at})
	require.NoError(t, err)
	require.True(t, applied)

	assert.Equal(t, dao.StatusDelivered, got.Status)
	assert.Equal(t, "John Doe", *got.DriverName)
	assert.True(t, eta.Equal(*got.EstimatedDeliveryTime))
	assert.True(t, at.Equal(*got.ActualDeliveryTime))
	assert.Len(t, got.Items, 2)
}

func TestOrderRepository_TimelineUnknownOrder(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.Timeline(context.Background(), 1, 50, 0)
	assert.ErrorIs(t, err, dao.ErrOrderNotFound)
}
