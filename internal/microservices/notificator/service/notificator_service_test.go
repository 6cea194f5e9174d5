package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/repository/notificatortest"
)

func TestHandleEvent_RecordsOneNotificationPerKind(t *testing.T) {
	repo := notificatortest.New()
	svc := NewNotificatorService(repo, zap.NewNop())
	ctx := context.Background()
	eta := time.Date(2026, 1, 2, 18, 30, 0, 0, time.UTC)

	evs := []events.Event{
		events.OrderShippedEvent{OrderID: 7, CustomerID: "cust-1", DriverName: "John Doe", EstimatedDeliveryTime: eta},
		events.OrderShippedEvent{OrderID: 7, CustomerID: "cust-1", DriverName: "John Doe", EstimatedDeliveryTime: eta},
		events.OrderDeliveredEvent{OrderID: 7, CustomerID: "cust-1"},
	}
	for _, ev := range evs {
		require.NoError(t, svc.HandleEvent(ctx, ev))
	}

	list, err := svc.ListNotifications(ctx, "cust-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, dao.KindDelivered, list[0].Kind)
	assert.Equal(t, dao.KindShipped, list[1].Kind)
	assert.Equal(t, "Order 7 is on its way with John Doe, expected by 6:30PM.", list[1].Message)
}

func TestHandleEvent_Messages(t *testing.T) {
	tests := map[string]struct {
		ev   events.Event
		kind dao.Kind
		want string
	}{
		"ready": {
			ev:   events.OrderReadyEvent{OrderID: 1, CustomerID: "c"},
			kind: dao.KindReady,
			want: "Order 1 is ready for pickup.",
		},
		"delivery failed": {
			ev:   events.OrderDeliveryFailedEvent{OrderID: 2, CustomerID: "c", Reason: events.ReasonInvalidAddress},
			kind: dao.KindDeliveryFailed,
			want: "Order 2 could not be delivered: Invalid delivery address.",
		},
		"inventory unavailable": {
			ev: events.OrderInventoryUnavailableEvent{OrderID: 3, CustomerID: "c", Items: []events.Availability{
				{ItemID: "1", Available: false},
				{ItemID: "2", Available: true},
				{ItemID: "9", Available: false},
			}},
			kind: dao.KindInventoryUnavailable,
			want: "Order 3 could not be fulfilled, unavailable items: 1, 9.",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			repo := notificatortest.New()
			require.NoError(t, NewNotificatorService(repo, zap.NewNop()).HandleEvent(context.Background(), tt.ev))

			list, err := repo.List(context.Background(), "c", 10, 0)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, tt.kind, list[0].Kind)
			assert.Equal(t, tt.want, list[0].Message)
		})
	}
}

func TestHandleEvent_IgnoresOtherEvents(t *testing.T) {
	repo := notificatortest.New()
	svc := NewNotificatorService(repo, zap.NewNop())

	require.NoError(t, svc.HandleEvent(context.Background(), events.OrderCreatedEvent{ID: 1, CustomerID: "c"}))

	list, err := repo.List(context.Background(), "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
