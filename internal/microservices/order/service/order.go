package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/broker"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/repository"
)

const changedBy = "order-service"

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (dao.Order, error)
	GetOrder(ctx context.Context, id int64) (dao.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]dao.Order, error)
	GetTimeline(ctx context.Context, id int64, limit, offset int) ([]dao.StatusChange, error)

	HandleEvent(ctx context.Context, ev events.Event) error
}

type OrderService struct {
	db  repository.OrderRepositoryInterface
	pub broker.EventPublisher
	lg  *zap.Logger
}

func NewOrderService(db repository.OrderRepositoryInterface, pub broker.EventPublisher, lg *zap.Logger) OrderServiceInterface {
	return &OrderService{db: db, pub: pub, lg: lg}
}

// CreateOrder stores a pending order and starts the saga. If the publish
// fails the order stays pending and the error is returned to the caller.
func (or *OrderService) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (dao.Order, error) {
	if err := req.Validate(); err != nil {
		return dao.Order{}, err
	}

	o, err := or.db.Create(ctx, dao.Order{
		CustomerID:      req.CustomerID,
		DeliveryAddress: req.DeliveryAddress,
		Items:           dto.ConvertItems(req.Items),
	}, changedBy)
	if err != nil {
		return dao.Order{}, err
	}
	or.lg.Info("order_created", zap.Int64("order_id", o.ID), zap.String("customer_id", o.CustomerID), zap.Int("items", len(o.Items)))

	if err := or.pub.Publish(ctx, events.OrderCreatedEvent{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		DeliveryAddress: o.DeliveryAddress,
		Items:           eventItems(o.Items),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
	}); err != nil {
		return dao.Order{}, fmt.Errorf("failed to publish order %d: %w", o.ID, err)
	}
	return o, nil
}

func (or *OrderService) GetOrder(ctx context.Context, id int64) (dao.Order, error) {
	return or.db.Get(ctx, id)
}

func (or *OrderService) ListOrders(ctx context.Context, limit, offset int) ([]dao.Order, error) {
	return or.db.List(ctx, limit, offset)
}

func (or *OrderService) GetTimeline(ctx context.Context, id int64, limit, offset int) ([]dao.StatusChange, error) {
	return or.db.Timeline(ctx, id, limit, offset)
}

// HandleEvent serves the order_inventory_events, order_kitchen_events and
// order_delivery_events queues.
func (or *OrderService) HandleEvent(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case events.InventoryReservedEvent:
		return or.transition(ctx, e.OrderID, dao.StatusUpdate{Status: dao.StatusAwaitingKitchen, Notes: "inventory reserved"},
			func(o dao.Order) events.Event {
				return events.OrderReadyForKitchenEvent{OrderID: o.ID, Items: eventItems(o.Items)}
			})

	case events.InventoryUnavailableEvent:
		return or.transition(ctx, e.OrderID, dao.StatusUpdate{Status: dao.StatusInventoryUnavailable, Notes: "inventory unavailable"},
			func(o dao.Order) events.Event {
				return events.OrderInventoryUnavailableEvent{OrderID: o.ID, CustomerID: o.CustomerID, Items: e.Items}
			})

	case events.KitchenOrderReadyEvent:
		return or.transition(ctx, e.OrderID, dao.StatusUpdate{Status: dao.StatusReady, Notes: "prepared by kitchen"},
			func(o dao.Order) events.Event {
				if o.DeliveryAddress != "" {
					return events.OrderReadyForDeliveryEvent{
						OrderID:         o.ID,
						CustomerID:      o.CustomerID,
						DeliveryAddress: o.DeliveryAddress,
						Items:           eventItems(o.Items),
					}
				}
				return events.OrderReadyEvent{OrderID: o.ID, CustomerID: o.CustomerID, Items: eventItems(o.Items)}
			})

	case events.DeliveryScheduledEvent:
		eta := e.EstimatedDeliveryTime
		return or.transition(ctx, e.OrderID, dao.StatusUpdate{
			Status:                dao.StatusShipped,
			Notes:                 "assigned to " + e.DriverName,
			DeliveryID:            &e.DeliveryID,
			DriverID:              &e.DriverID,
			DriverName:            &e.DriverName,
			EstimatedDeliveryTime: &eta,
		}, func(o dao.Order) events.Event {
			return events.OrderShippedEvent{
				OrderID:               o.ID,
				CustomerID:            o.CustomerID,
				DeliveryID:            e.DeliveryID,
				DriverID:              e.DriverID,
				DriverName:            e.DriverName,
				EstimatedDeliveryTime: e.EstimatedDeliveryTime,
			}
		})

	case events.DeliveryCompletedEvent:
		at := e.ActualDeliveryTime
		return or.transition(ctx, e.OrderID, dao.StatusUpdate{
			Status:             dao.StatusDelivered,
			Notes:              "delivered",
			DeliveryID:         &e.DeliveryID,
			ActualDeliveryTime: &at,
		}, func(o dao.Order) events.Event {
			return events.OrderDeliveredEvent{
				OrderID:            o.ID,
				CustomerID:         o.CustomerID,
				DeliveryID:         e.DeliveryID,
				ActualDeliveryTime: e.ActualDeliveryTime,
			}
		})

	case events.DeliveryFailedEvent:
		return or.transition(ctx, e.OrderID, dao.StatusUpdate{Status: dao.StatusDeliveryFailed, Notes: e.Reason},
			func(o dao.Order) events.Event {
				return events.OrderDeliveryFailedEvent{OrderID: o.ID, CustomerID: o.CustomerID, Reason: e.Reason}
			})

	case events.KitchenOrderReceivedEvent, events.KitchenOrderCompletedEvent:
		or.lg.Info("kitchen_progress", zap.String("routing_key", ev.RoutingKey()), zap.Int64("order_id", ev.OrderRef()))
		return nil

	default:
		or.lg.Warn("event_ignored", zap.String("routing_key", ev.RoutingKey()), zap.Int64("order_id", ev.OrderRef()))
		return nil
	}
}

// transition moves the order and publishes next built from the updated
// order. A redelivered event re-applies the same status and publishes again;
// an event that would move the order backwards is dropped.
func (or *OrderService) transition(ctx context.Context, id int64, u dao.StatusUpdate, next func(dao.Order) events.Event) error {
	lg := or.lg.With(zap.Int64("order_id", id), zap.String("status", string(u.Status)))
	u.ChangedBy = changedBy

	o, applied, err := or.db.Transition(ctx, id, u)
	if errors.Is(err, dao.ErrOrderNotFound) {
		lg.Warn("order_not_found")
		return nil
	}
	if err != nil {
		return err
	}
	if !applied {
		lg.Warn("transition_rejected", zap.String("current", string(o.Status)))
		return nil
	}

	lg.Info("order_status_changed")
	return or.pub.Publish(ctx, next(o))
}

func eventItems(items []dao.OrderItem) []events.Item {
	out := make([]events.Item, 0, len(items))
	for _, it := range items {
		price := it.Price
		out = append(out, events.Item{ItemID: it.ItemID, Name: it.Name, Quantity: it.Quantity, Price: &price})
	}
	return out
}
