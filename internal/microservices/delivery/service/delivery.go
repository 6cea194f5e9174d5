package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/broker"
	"github.com/nikolovlazar/tracing-demos/internal/config"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/repository"
	"github.com/nikolovlazar/tracing-demos/internal/scheduler"
)

// TaskTransit is the due task that ends a delivery's simulated transit.
const TaskTransit = "delivery.transit"

type DeliveryServiceInterface interface {
	ListDeliveries(ctx context.Context, limit, offset int) ([]dao.Delivery, error)
	GetDelivery(ctx context.Context, id int64) (dao.Delivery, error)
	ListDrivers() []dao.Driver
	SetDriverAvailability(id string, req dto.SetAvailabilityRequest) error

	HandleEvent(ctx context.Context, ev events.Event) error
	// CompleteDelivery runs when a delivery's transit time is up.
	CompleteDelivery(ctx context.Context, id int64) error
}

type DeliveryService struct {
	db      repository.DeliveryRepositoryInterface
	pub     broker.EventPublisher
	sched   scheduler.Scheduler
	drivers *DriverPool
	cfg     config.DeliveryConfig
	lg      *zap.Logger
	now     func() time.Time
}

func NewDeliveryService(db repository.DeliveryRepositoryInterface, pub broker.EventPublisher, sched scheduler.Scheduler, drivers *DriverPool, cfg config.DeliveryConfig, lg *zap.Logger) DeliveryServiceInterface {
	return &DeliveryService{db: db, pub: pub, sched: sched, drivers: drivers, cfg: cfg, lg: lg, now: time.Now}
}

func (ds *DeliveryService) ListDeliveries(ctx context.Context, limit, offset int) ([]dao.Delivery, error) {
	return ds.db.List(ctx, limit, offset)
}

func (ds *DeliveryService) GetDelivery(ctx context.Context, id int64) (dao.Delivery, error) {
	return ds.db.Get(ctx, id)
}

func (ds *DeliveryService) ListDrivers() []dao.Driver {
	return ds.drivers.List()
}

func (ds *DeliveryService) SetDriverAvailability(id string, req dto.SetAvailabilityRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if !ds.drivers.SetAvailable(id, *req.Available) {
		return dao.ErrDriverNotFound
	}
	ds.lg.Info("driver_availability_changed", zap.String("driver_id", id), zap.Bool("available", *req.Available))
	return nil
}

// HandleEvent serves the delivery_order_events queue.
func (ds *DeliveryService) HandleEvent(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case events.OrderReadyForDeliveryEvent:
		return ds.handleOrderReadyForDelivery(ctx, e)
	default:
		ds.lg.Warn("event_ignored", zap.String("routing_key", ev.RoutingKey()), zap.Int64("order_id", ev.OrderRef()))
		return nil
	}
}

func (ds *DeliveryService) handleOrderReadyForDelivery(ctx context.Context, e events.OrderReadyForDeliveryEvent) error {
	lg := ds.lg.With(zap.Int64("order_id", e.OrderID))

	if strings.TrimSpace(e.DeliveryAddress) == "" {
		lg.Warn("delivery_rejected", zap.String("reason", events.ReasonInvalidAddress))
		return ds.fail(ctx, e, events.ReasonInvalidAddress)
	}

	existing, err := ds.db.GetByOrder(ctx, e.OrderID)
	switch {
	case err == nil:
		lg.Info("delivery_duplicate", zap.Int64("delivery_id", existing.ID), zap.String("status", string(existing.Status)))
		return ds.ensureTransit(ctx, existing)
	case !errors.Is(err, dao.ErrDeliveryNotFound):
		return err
	}

	driver, ok := ds.drivers.Assign()
	if !ok {
		lg.Warn("delivery_rejected", zap.String("reason", events.ReasonNoDrivers))
		return ds.fail(ctx, e, events.ReasonNoDrivers)
	}

	items := make([]dao.DeliveryItem, 0, len(e.Items))
	for _, it := range e.Items {
		items = append(items, dao.DeliveryItem{ItemID: it.ItemID, Name: it.Name, Quantity: it.Quantity})
	}
	d, created, err := ds.db.CreateIfAbsent(ctx, dao.Delivery{
		OrderID:               e.OrderID,
		CustomerID:            e.CustomerID,
		Address:               e.DeliveryAddress,
		DriverID:              driver.ID,
		DriverName:            driver.Name,
		EstimatedDeliveryTime: ds.now().Add(between(ds.cfg.ETAMin, ds.cfg.ETAMax)).UTC(),
		Items:                 items,
	})
	if err != nil {
		return err
	}
	if !created {
		lg.Info("delivery_duplicate", zap.Int64("delivery_id", d.ID))
		return ds.ensureTransit(ctx, d)
	}

	transit := between(ds.cfg.TransitMin, ds.cfg.TransitMax)
	if err := ds.sched.Schedule(ctx, TaskTransit, d.ID, ds.now().Add(transit)); err != nil {
		return err
	}
	lg.Info("delivery_scheduled",
		zap.Int64("delivery_id", d.ID),
		zap.String("driver_id", d.DriverID),
		zap.Time("eta", d.EstimatedDeliveryTime),
		zap.Duration("transit", transit),
	)

	evItems := make([]events.Item, 0, len(d.Items))
	for _, it := range d.Items {
		evItems = append(evItems, events.Item{ItemID: it.ItemID, Name: it.Name, Quantity: it.Quantity})
	}
	return ds.pub.Publish(ctx, events.DeliveryScheduledEvent{
		DeliveryID:            d.ID,
		OrderID:               d.OrderID,
		CustomerID:            d.CustomerID,
		DriverID:              d.DriverID,
		DriverName:            d.DriverName,
		EstimatedDeliveryTime: d.EstimatedDeliveryTime,
		Address:               d.Address,
		Items:                 evItems,
	})
}

// ensureTransit re-enqueues the transit of a pending delivery seen again.
func (ds *DeliveryService) ensureTransit(ctx context.Context, d dao.Delivery) error {
	if d.Status != dao.StatusPending {
		return nil
	}
	return ds.sched.Schedule(ctx, TaskTransit, d.ID, ds.now().Add(between(ds.cfg.TransitMin, ds.cfg.TransitMax)))
}

func (ds *DeliveryService) fail(ctx context.Context, e events.OrderReadyForDeliveryEvent, reason string) error {
	return ds.pub.Publish(ctx, events.DeliveryFailedEvent{OrderID: e.OrderID, CustomerID: e.CustomerID, Reason: reason})
}

// CompleteDelivery marks the delivery done and announces it. Errors only
// reach the task runner, which logs them and marks the task failed.
func (ds *DeliveryService) CompleteDelivery(ctx context.Context, id int64) error {
	d, err := ds.db.Complete(ctx, id, ds.now())
	if err != nil {
		return err
	}
	if d.ActualDeliveryTime == nil {
		return errors.New("delivery has no completion time")
	}
	ds.lg.Info("delivery_completed", zap.Int64("delivery_id", d.ID), zap.Int64("order_id", d.OrderID), zap.String("driver_id", d.DriverID))
	return ds.pub.Publish(ctx, events.DeliveryCompletedEvent{
		DeliveryID:         d.ID,
		OrderID:            d.OrderID,
		CustomerID:         d.CustomerID,
		DriverID:           d.DriverID,
		DriverName:         d.DriverName,
		ActualDeliveryTime: *d.ActualDeliveryTime,
	})
}

// between returns a uniformly random duration in [lo, hi].
func between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
