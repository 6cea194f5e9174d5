package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/repository"
)

type NotificatorServiceInterface interface {
	ListNotifications(ctx context.Context, customerID string, limit, offset int) ([]dao.Notification, error)
	HandleEvent(ctx context.Context, ev events.Event) error
}

type NotificatorService struct {
	db repository.NotificationRepositoryInterface
	lg *zap.Logger
}

func NewNotificatorService(db repository.NotificationRepositoryInterface, lg *zap.Logger) NotificatorServiceInterface {
	return &NotificatorService{db: db, lg: lg}
}

func (ns *NotificatorService) ListNotifications(ctx context.Context, customerID string, limit, offset int) ([]dao.Notification, error) {
	return ns.db.List(ctx, customerID, limit, offset)
}

// HandleEvent serves notifications_queue. Each customer-facing order event
// produces one notification; redeliveries are recorded once.
func (ns *NotificatorService) HandleEvent(ctx context.Context, ev events.Event) error {
	var n dao.Notification
	switch e := ev.(type) {
	case events.OrderReadyEvent:
		n = dao.Notification{OrderID: e.OrderID, CustomerID: e.CustomerID, Kind: dao.KindReady,
			Message: fmt.Sprintf("Order %d is ready for pickup.", e.OrderID)}
	case events.OrderShippedEvent:
		n = dao.Notification{OrderID: e.OrderID, CustomerID: e.CustomerID, Kind: dao.KindShipped,
			Message: fmt.Sprintf("Order %d is on its way with %s, expected by %s.",
				e.OrderID, e.DriverName, e.EstimatedDeliveryTime.UTC().Format(time.Kitchen))}
	case events.OrderDeliveredEvent:
		n = dao.Notification{OrderID: e.OrderID, CustomerID: e.CustomerID, Kind: dao.KindDelivered,
			Message: fmt.Sprintf("Order %d was delivered.", e.OrderID)}
	case events.OrderDeliveryFailedEvent:
		n = dao.Notification{OrderID: e.OrderID, CustomerID: e.CustomerID, Kind: dao.KindDeliveryFailed,
			Message: fmt.Sprintf("Order %d could not be delivered: %s.", e.OrderID, e.Reason)}
	case events.OrderInventoryUnavailableEvent:
		n = dao.Notification{OrderID: e.OrderID, CustomerID: e.CustomerID, Kind: dao.KindInventoryUnavailable,
			Message: fmt.Sprintf("Order %d could not be fulfilled, unavailable items: %s.", e.OrderID, unavailable(e.Items))}
	default:
		ns.lg.Debug("event_ignored", zap.String("routing_key", ev.RoutingKey()), zap.Int64("order_id", ev.OrderRef()))
		return nil
	}

	out, created, err := ns.db.Record(ctx, n)
	if err != nil {
		return err
	}
	if !created {
		ns.lg.Info("notification_duplicate", zap.Int64("order_id", out.OrderID), zap.String("kind", string(out.Kind)))
		return nil
	}
	ns.lg.Info("customer_notified",
		zap.Int64("notification_id", out.ID),
		zap.Int64("order_id", out.OrderID),
		zap.String("customer_id", out.CustomerID),
		zap.String("kind", string(out.Kind)),
		zap.String("message", out.Message),
	)
	return nil
}

func unavailable(report []events.Availability) string {
	var ids []string
	for _, a := range report {
		if !a.Available {
			ids = append(ids, a.ItemID)
		}
	}
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
