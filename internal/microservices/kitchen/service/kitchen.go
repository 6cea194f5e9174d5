package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/broker"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/repository"
	"github.com/nikolovlazar/tracing-demos/internal/scheduler"
)

// TaskPrepare is the due task that finishes preparing a kitchen order.
const TaskPrepare = "kitchen.prep"

type KitchenServiceInterface interface {
	ListOrders(ctx context.Context, limit, offset int) ([]dao.KitchenOrder, error)
	GetOrder(ctx context.Context, id int64) (dao.KitchenOrder, error)
	UpdateItemStatus(ctx context.Context, id int64, itemID string, req dto.UpdateItemStatusRequest) (dao.KitchenOrder, error)

	HandleEvent(ctx context.Context, ev events.Event) error
	// PrepareOrder runs when the preparation delay of a kitchen order is up.
	PrepareOrder(ctx context.Context, id int64) error
}

type KitchenService struct {
	db        repository.KitchenRepositoryInterface
	pub       broker.EventPublisher
	sched     scheduler.Scheduler
	prepDelay time.Duration
	lg        *zap.Logger
	now       func() time.Time
}

func NewKitchenService(db repository.KitchenRepositoryInterface, pub broker.EventPublisher, sched scheduler.Scheduler, prepDelay time.Duration, lg *zap.Logger) KitchenServiceInterface {
	return &KitchenService{db: db, pub: pub, sched: sched, prepDelay: prepDelay, lg: lg, now: time.Now}
}

func (ks *KitchenService) ListOrders(ctx context.Context, limit, offset int) ([]dao.KitchenOrder, error) {
	return ks.db.List(ctx, limit, offset)
}

func (ks *KitchenService) GetOrder(ctx context.Context, id int64) (dao.KitchenOrder, error) {
	return ks.db.Get(ctx, id)
}

// UpdateItemStatus publishes kitchen.order_completed when the update closes
// the last open item.
func (ks *KitchenService) UpdateItemStatus(ctx context.Context, id int64, itemID string, req dto.UpdateItemStatusRequest) (dao.KitchenOrder, error) {
	if err := req.Validate(); err != nil {
		return dao.KitchenOrder{}, err
	}
	ko, completed, err := ks.db.UpdateItemStatus(ctx, id, itemID, req.Status)
	if err != nil {
		return dao.KitchenOrder{}, err
	}
	lg := ks.lg.With(zap.Int64("kitchen_order_id", id), zap.Int64("order_id", ko.OrderID))
	lg.Info("kitchen_item_updated", zap.String("item_id", itemID), zap.String("status", string(req.Status)))
	if !completed {
		return ko, nil
	}

	lg.Info("kitchen_order_completed")
	if err := ks.pub.Publish(ctx, events.KitchenOrderCompletedEvent{KitchenOrderID: ko.ID, OrderID: ko.OrderID}); err != nil {
		return dao.KitchenOrder{}, err
	}
	return ko, nil
}

// HandleEvent serves the kitchen_order_events queue.
func (ks *KitchenService) HandleEvent(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case events.OrderReadyForKitchenEvent:
		return ks.handleOrderReadyForKitchen(ctx, e)
	default:
		ks.lg.Warn("event_ignored", zap.String("routing_key", ev.RoutingKey()), zap.Int64("order_id", ev.OrderRef()))
		return nil
	}
}

// handleOrderReadyForKitchen opens a kitchen order once per order and
// schedules its preparation. A redelivery publishes nothing; it only makes
// sure a still-pending order has its preparation scheduled.
func (ks *KitchenService) handleOrderReadyForKitchen(ctx context.Context, e events.OrderReadyForKitchenEvent) error {
	lg := ks.lg.With(zap.Int64("order_id", e.OrderID))

	items := make([]dao.OrderItem, 0, len(e.Items))
	for _, it := range e.Items {
		items = append(items, dao.OrderItem{ItemID: it.ItemID, Name: it.Name, Quantity: it.Quantity})
	}

	ko, created, err := ks.db.CreateIfAbsent(ctx, e.OrderID, items)
	if err != nil {
		return err
	}
	lg = lg.With(zap.Int64("kitchen_order_id", ko.ID))

	if !created {
		lg.Info("kitchen_order_duplicate", zap.String("status", string(ko.Status)))
		if ko.Status != dao.StatusPending {
			return nil
		}
		return ks.sched.Schedule(ctx, TaskPrepare, ko.ID, ks.now().Add(ks.prepDelay))
	}

	if err := ks.sched.Schedule(ctx, TaskPrepare, ko.ID, ks.now().Add(ks.prepDelay)); err != nil {
		return err
	}
	lg.Info("kitchen_order_received", zap.Int("items", len(ko.Items)), zap.Duration("prep_delay", ks.prepDelay))

	return ks.pub.Publish(ctx, events.KitchenOrderReceivedEvent{
		KitchenOrderID: ko.ID,
		OrderID:        ko.OrderID,
		Items:          eventItems(ko.Items),
	})
}

func (ks *KitchenService) PrepareOrder(ctx context.Context, id int64) error {
	ko, err := ks.db.MarkReady(ctx, id)
	if err != nil {
		return err
	}
	ks.lg.Info("kitchen_order_ready",
		zap.Int64("kitchen_order_id", ko.ID),
		zap.Int64("order_id", ko.OrderID),
		zap.String("status", string(ko.Status)),
	)
	return ks.pub.Publish(ctx, events.KitchenOrderReadyEvent{
		KitchenOrderID: ko.ID,
		OrderID:        ko.OrderID,
		Items:          eventItems(ko.Items),
	})
}

func eventItems(items []dao.OrderItem) []events.Item {
	out := make([]events.Item, 0, len(items))
	for _, it := range items {
		out = append(out, events.Item{ItemID: it.ItemID, Name: it.Name, Quantity: it.Quantity})
	}
	return out
}
