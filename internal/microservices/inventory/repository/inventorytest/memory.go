// Package inventorytest provides an in-memory inventory repository that
// reserves all-or-nothing and replays an order's reservation on redelivery.
package inventorytest

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/domain/dao"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/repository"
)

type Repo struct {
	mu       sync.Mutex
	nextID   int64
	items    map[int64]dao.Item
	reserved map[int64][]dao.ReservationLine
}

func New(items ...dao.Item) *Repo {
	r := &Repo{items: map[int64]dao.Item{}, reserved: map[int64][]dao.ReservationLine{}}
	for _, it := range items {
		_, _ = r.Create(context.Background(), it)
	}
	return r
}

func (r *Repo) List(_ context.Context, limit, offset int) ([]dao.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dao.Item
	for id := int64(1); id <= r.nextID; id++ {
		if it, ok := r.items[id]; ok {
			out = append(out, it)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repo) Get(_ context.Context, id int64) (dao.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return dao.Item{}, dao.ErrItemNotFound
	}
	return it, nil
}

func (r *Repo) Create(_ context.Context, item dao.Item) (dao.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := time.Now().UTC()
	item.ID = r.nextID
	item.CreatedAt, item.UpdatedAt = now, now
	r.items[item.ID] = item
	return item, nil
}

func (r *Repo) Update(_ context.Context, id int64, p dao.ItemPatch) (dao.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return dao.Item{}, dao.ErrItemNotFound
	}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	it.UpdatedAt = time.Now().UTC()
	r.items[id] = it
	return it, nil
}

func (r *Repo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return dao.ErrItemNotFound
	}
	key := strconv.FormatInt(id, 10)
	for _, lines := range r.reserved {
		for _, l := range lines {
			if l.ItemID == key {
				return dao.ErrItemReserved
			}
		}
	}
	delete(r.items, id)
	return nil
}

func (r *Repo) SetQuantity(ctx context.Context, id int64, quantity int) (dao.Item, error) {
	return r.Update(ctx, id, dao.ItemPatch{Quantity: &quantity})
}

func (r *Repo) Reserve(_ context.Context, orderID int64, lines []dao.ReservationLine) (dao.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.reserved[orderID]; ok {
		return dao.Reservation{Reserved: true, Replayed: true, Lines: existing}, nil
	}

	merged := repository.MergeLines(lines)
	stock := make(map[string]int, len(r.items))
	for id, it := range r.items {
		stock[strconv.FormatInt(id, 10)] = it.Quantity
	}

	res := dao.Reservation{Lines: merged, Report: repository.BuildReport(merged, stock)}
	for _, a := range res.Report {
		if !a.Available {
			return res, nil
		}
	}

	held := make([]dao.ReservationLine, 0, len(merged))
	for _, l := range merged {
		id, _ := strconv.ParseInt(l.ItemID, 10, 64)
		it := r.items[id]
		it.Quantity -= l.Quantity
		r.items[id] = it
		held = append(held, dao.ReservationLine{ItemID: strconv.FormatInt(id, 10), Quantity: l.Quantity})
	}
	r.reserved[orderID] = held
	res.Reserved = true
	return res, nil
}
