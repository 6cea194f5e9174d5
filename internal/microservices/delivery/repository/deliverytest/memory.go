// Package deliverytest provides an in-memory delivery repository.
package deliverytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dao"
)

type Repo struct {
	mu         sync.Mutex
	nextID     int64
	nextItem   int64
	deliveries map[int64]*dao.Delivery
}

func New() *Repo {
	return &Repo{deliveries: map[int64]*dao.Delivery{}}
}

func (r *Repo) GetByOrder(_ context.Context, orderID int64) (dao.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d := r.byOrderLocked(orderID); d != nil {
		return clone(d), nil
	}
	return dao.Delivery{}, dao.ErrDeliveryNotFound
}

func (r *Repo) CreateIfAbsent(_ context.Context, in dao.Delivery) (dao.Delivery, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d := r.byOrderLocked(in.OrderID); d != nil {
		return clone(d), false, nil
	}

	r.nextID++
	now := time.Now().UTC()
	d := in
	d.ID, d.Status, d.CreatedAt, d.UpdatedAt = r.nextID, dao.StatusPending, now, now
	d.Items = nil
	for _, it := range in.Items {
		r.nextItem++
		it.ID, it.DeliveryID = r.nextItem, d.ID
		d.Items = append(d.Items, it)
	}
	r.deliveries[d.ID] = &d
	return clone(&d), true, nil
}

func (r *Repo) Get(_ context.Context, id int64) (dao.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return dao.Delivery{}, dao.ErrDeliveryNotFound
	}
	return clone(d), nil
}

func (r *Repo) List(_ context.Context, limit, offset int) ([]dao.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dao.Delivery, 0, len(r.deliveries))
	for _, d := range r.deliveries {
		out = append(out, clone(d))
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

func (r *Repo) Complete(_ context.Context, id int64, at time.Time) (dao.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return dao.Delivery{}, dao.ErrDeliveryNotFound
	}
	if d.Status == dao.StatusPending {
		at := at.UTC()
		d.Status, d.ActualDeliveryTime, d.UpdatedAt = dao.StatusCompleted, &at, time.Now().UTC()
	}
	return clone(d), nil
}

func (r *Repo) byOrderLocked(orderID int64) *dao.Delivery {
	for _, d := range r.deliveries {
		if d.OrderID == orderID {
			return d
		}
	}
	return nil
}

func clone(d *dao.Delivery) dao.Delivery {
	out := *d
	out.Items = append([]dao.DeliveryItem(nil), d.Items...)
	return out
}
