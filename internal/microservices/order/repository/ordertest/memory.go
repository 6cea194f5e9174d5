// Package ordertest provides an in-memory order repository with the same
// transition guard as the Postgres one.
package ordertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dao"
)

type Repo struct {
	mu       sync.Mutex
	nextID   int64
	nextItem int64
	orders   map[int64]dao.Order
	log      []dao.StatusChange
}

func New() *Repo {
	return &Repo{orders: map[int64]dao.Order{}}
}

func (r *Repo) Create(_ context.Context, order dao.Order, changedBy string) (dao.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	o := order
	o.ID = r.nextID
	o.Status = dao.StatusPending
	o.CreatedAt, o.UpdatedAt = now, now
	o.Items = make([]dao.OrderItem, 0, len(order.Items))
	for _, it := range order.Items {
		r.nextItem++
		it.ID, it.OrderID = r.nextItem, o.ID
		o.Items = append(o.Items, it)
	}
	r.orders[o.ID] = o
	r.appendLocked(o.ID, dao.StatusPending, changedBy, "order created")
	return o, nil
}

func (r *Repo) Get(_ context.Context, id int64) (dao.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return dao.Order{}, dao.ErrOrderNotFound
	}
	return o, nil
}

func (r *Repo) List(_ context.Context, limit, offset int) ([]dao.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dao.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r *Repo) Transition(_ context.Context, id int64, u dao.StatusUpdate) (dao.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return dao.Order{}, false, dao.ErrOrderNotFound
	}
	if !dao.CanTransition(o.Status, u.Status) {
		return o, false, nil
	}

	o.Status = u.Status
	if u.DeliveryID != nil {
		o.DeliveryID = u.DeliveryID
	}
	if u.DriverID != nil {
		o.DriverID = u.DriverID
	}
	if u.DriverName != nil {
		o.DriverName = u.DriverName
	}
	if u.EstimatedDeliveryTime != nil {
		o.EstimatedDeliveryTime = u.EstimatedDeliveryTime
	}
	if u.ActualDeliveryTime != nil {
		o.ActualDeliveryTime = u.ActualDeliveryTime
	}
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	r.appendLocked(id, u.Status, u.ChangedBy, u.Notes)
	return o, true, nil
}

func (r *Repo) Timeline(_ context.Context, id int64, limit, offset int) ([]dao.StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return nil, dao.ErrOrderNotFound
	}
	var out []dao.StatusChange
	for _, c := range r.log {
		if c.OrderID == id {
			out = append(out, c)
		}
	}
	return page(out, limit, offset), nil
}

func (r *Repo) appendLocked(id int64, s dao.Status, by, notes string) {
	r.log = append(r.log, dao.StatusChange{
		ID:        int64(len(r.log) + 1),
		OrderID:   id,
		Status:    s,
		ChangedBy: by,
		ChangedAt: time.Now().UTC(),
		Notes:     notes,
	})
}

func page[T any](s []T, limit, offset int) []T {
	if offset >= len(s) {
		return nil
	}
	s = s[offset:]
	if limit < len(s) {
		s = s[:limit]
	}
	return s
}
