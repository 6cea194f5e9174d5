package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikolovlazar/tracing-demos/internal/common/db/dbtest"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/migrations"
)

func delivery(orderID int64) dao.Delivery {
	return dao.Delivery{
		OrderID:               orderID,
		CustomerID:            "cust-1",
		Address:               "1 Main St",
		DriverID:              "DRIVER-1",
		DriverName:            "John Doe",
		EstimatedDeliveryTime: time.Now().Add(20 * time.Minute),
		Items:                 []dao.DeliveryItem{{ItemID: "1", Name: "Margherita Pizza", Quantity: 1}},
	}
}

func TestDeliveryRepository_Lifecycle(t *testing.T) {
	repo := NewDeliveryRepository(dbtest.NewPool(t, migrations.FS))
	ctx := context.Background()

	_, err := repo.GetByOrder(ctx, 42)
	assert.ErrorIs(t, err, dao.ErrDeliveryNotFound)

	d, created, err := repo.CreateIfAbsent(ctx, delivery(42))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, dao.StatusPending, d.Status)
	assert.Equal(t, "DRIVER-1", d.DriverID)
	require.Len(t, d.Items, 1)

	dup, created, err := repo.CreateIfAbsent(ctx, delivery(42))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, d.ID, dup.ID)

	byOrder, err := repo.GetByOrder(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, d.ID, byOrder.ID)

	at := time.Now().UTC().Truncate(time.Microsecond)
	done, err := repo.Complete(ctx, d.ID, at)
	require.NoError(t, err)
	assert.Equal(t, dao.StatusCompleted, done.Status)
	require.NotNil(t, done.ActualDeliveryTime)
	assert.True(t, at.Equal(*done.ActualDeliveryTime))

	// completing twice keeps the first time
	again, err := repo.Complete(ctx, d.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, at.Equal(*again.ActualDeliveryTime))

	_, err = repo.Complete(ctx, d.ID+100, at)
	assert.ErrorIs(t, err, dao.ErrDeliveryNotFound)

	list, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
