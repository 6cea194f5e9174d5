// Package kitchentest provides an in-memory kitchen repository.
package kitchentest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/domain/dao"
)

type Repo struct {
	mu       sync.Mutex
	nextID   int64
	nextItem int64
	orders   map[int64]*dao.KitchenOrder
}

func New() *Repo {
	return &Repo{orders: map[int64]*dao.KitchenOrder{}}
}

func (r *Repo) CreateIfAbsent(_ context.Context, orderID int64, items []dao.OrderItem) (dao.KitchenOrder, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ko := range r.orders {
		if ko.OrderID == orderID {
			return clone(ko), false, nil
		}
	}

	r.nextID++
	now := time.Now().UTC()
	ko := &dao.KitchenOrder{ID: r.nextID, OrderID: orderID, Status: dao.StatusPending, CreatedAt: now, UpdatedAt: now}
	for _, it := range items {
		r.nextItem++
		it.ID, it.KitchenOrderID, it.Status = r.nextItem, ko.ID, dao.StatusPending
		ko.Items = append(ko.Items, it)
	}
	r.orders[ko.ID] = ko
	return clone(ko), true, nil
}

func (r *Repo) Get(_ context.Context, id int64) (dao.KitchenOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ko, ok := r.orders[id]
	if !ok {
		return dao.KitchenOrder{}, dao.ErrKitchenOrderNotFound
	}
	return clone(ko), nil
}

func (r *Repo) List(_ context.Context, limit, offset int) ([]dao.KitchenOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dao.KitchenOrder, 0, len(r.orders))
	for _, ko := range r.orders {
		out = append(out, clone(ko))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repo) MarkReady(_ context.Context, id int64) (dao.KitchenOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ko, ok := r.orders[id]
	if !ok {
		return dao.KitchenOrder{}, dao.ErrKitchenOrderNotFound
	}
	if ko.Status == dao.StatusPending {
		ko.Status = dao.StatusReady
		ko.UpdatedAt = time.Now().UTC()
	}
	return clone(ko), nil
}

func (r *Repo) UpdateItemStatus(_ context.Context, id int64, itemID string, status dao.Status) (dao.KitchenOrder, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ko, ok := r.orders[id]
	if !ok {
		return dao.KitchenOrder{}, false, dao.ErrKitchenOrderNotFound
	}
	if ko.Status == dao.StatusCompleted {
		return dao.KitchenOrder{}, false, dao.ErrKitchenOrderClosed
	}

	found := false
	for i := range ko.Items {
		if ko.Items[i].ItemID == itemID {
			ko.Items[i].Status = status
			found = true
		}
	}
	if !found {
		return dao.KitchenOrder{}, false, dao.ErrItemNotFound
	}

	completed := ko.AllCompleted()
	if completed {
		ko.Status = dao.StatusCompleted
		ko.UpdatedAt = time.Now().UTC()
	}
	return clone(ko), completed, nil
}

func clone(ko *dao.KitchenOrder) dao.KitchenOrder {
	out := *ko
	out.Items = append([]dao.OrderItem(nil), ko.Items...)
	return out
}
