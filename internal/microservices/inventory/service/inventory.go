package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/broker"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/domain/dto"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/repository"
)

type InventoryServiceInterface interface {
	ListItems(ctx context.Context, limit, offset int) ([]dao.Item, error)
	GetItem(ctx context.Context, id int64) (dao.Item, error)
	CreateItem(ctx context.Context, req dto.CreateItemRequest) (dao.Item, error)
	UpdateItem(ctx context.Context, id int64, req dto.UpdateItemRequest) (dao.Item, error)
	DeleteItem(ctx context.Context, id int64) error
	UpdateQuantity(ctx context.Context, id int64, req dto.UpdateQuantityRequest) (dao.Item, error)

	HandleEvent(ctx context.Context, ev events.Event) error
}

type InventoryService struct {
	db  repository.InventoryRepositoryInterface
	pub broker.EventPublisher
	lg  *zap.Logger
}

func NewInventoryService(db repository.InventoryRepositoryInterface, pub broker.EventPublisher, lg *zap.Logger) InventoryServiceInterface {
	return &InventoryService{db: db, pub: pub, lg: lg}
}

func (is *InventoryService) ListItems(ctx context.Context, limit, offset int) ([]dao.Item, error) {
	return is.db.List(ctx, limit, offset)
}

func (is *InventoryService) GetItem(ctx context.Context, id int64) (dao.Item, error) {
	return is.db.Get(ctx, id)
}

func (is *InventoryService) CreateItem(ctx context.Context, req dto.CreateItemRequest) (dao.Item, error) {
	if err := req.Validate(); err != nil {
		return dao.Item{}, err
	}
	it, err := is.db.Create(ctx, req.ToItem())
	if err != nil {
		return dao.Item{}, err
	}
	is.lg.Info("inventory_item_created", zap.Int64("item_id", it.ID), zap.String("name", it.Name), zap.Int("quantity", it.Quantity))
	return it, nil
}

func (is *InventoryService) UpdateItem(ctx context.Context, id int64, req dto.UpdateItemRequest) (dao.Item, error) {
	if err := req.Validate(); err != nil {
		return dao.Item{}, err
	}
	it, err := is.db.Update(ctx, id, req.ToPatch())
	if err != nil {
		return dao.Item{}, err
	}
	is.lg.Info("inventory_item_updated", zap.Int64("item_id", id))
	return it, nil
}

func (is *InventoryService) DeleteItem(ctx context.Context, id int64) error {
	if err := is.db.Delete(ctx, id); err != nil {
		return err
	}
	is.lg.Info("inventory_item_deleted", zap.Int64("item_id", id))
	return nil
}

func (is *InventoryService) UpdateQuantity(ctx context.Context, id int64, req dto.UpdateQuantityRequest) (dao.Item, error) {
	if err := req.Validate(); err != nil {
		return dao.Item{}, err
	}
	it, err := is.db.SetQuantity(ctx, id, *req.Quantity)
	if err != nil {
		return dao.Item{}, err
	}
	is.lg.Info("inventory_quantity_updated", zap.Int64("item_id", id), zap.Int("quantity", it.Quantity))
	return it, nil
}

// HandleEvent serves the inventory_order_events queue.
func (is *InventoryService) HandleEvent(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case events.OrderCreatedEvent:
		return is.handleOrderCreated(ctx, e)
	default:
		is.lg.Warn("event_ignored", zap.String("routing_key", ev.RoutingKey()), zap.Int64("order_id", ev.OrderRef()))
		return nil
	}
}

// handleOrderCreated reserves stock for the whole order or reports why it
// cannot. Nothing is released if a later saga step fails.
func (is *InventoryService) handleOrderCreated(ctx context.Context, e events.OrderCreatedEvent) error {
	lg := is.lg.With(zap.Int64("order_id", e.ID))

	lines := make([]dao.ReservationLine, 0, len(e.Items))
	for _, it := range e.Items {
		lines = append(lines, dao.ReservationLine{ItemID: it.ItemID, Quantity: it.Quantity})
	}

	res, err := is.db.Reserve(ctx, e.ID, lines)
	if err != nil {
		return err
	}

	if !res.Reserved {
		report := make([]events.Availability, 0, len(res.Report))
		for _, a := range res.Report {
			report = append(report, events.Availability{
				ItemID:            a.ItemID,
				Available:         a.Available,
				CurrentStock:      a.CurrentStock,
				RequestedQuantity: a.RequestedQuantity,
				Reason:            a.Reason,
			})
		}
		lg.Warn("inventory_unavailable", zap.Any("report", report))
		return is.pub.Publish(ctx, events.InventoryUnavailableEvent{OrderID: e.ID, Items: report})
	}

	reserved := make([]events.ReservedItem, 0, len(res.Lines))
	for _, l := range res.Lines {
		reserved = append(reserved, events.ReservedItem{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	if res.Replayed {
		lg.Info("inventory_reservation_replayed", zap.Int("lines", len(reserved)))
	} else {
		lg.Info("inventory_reserved", zap.Int("lines", len(reserved)))
	}
	return is.pub.Publish(ctx, events.InventoryReservedEvent{OrderID: e.ID, Items: reserved})
}
