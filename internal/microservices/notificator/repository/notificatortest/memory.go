// Package notificatortest provides an in-memory notification repository.
package notificatortest

import (
	"context"
	"sync"
	"time"

	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/domain/dao"
)

type Repo struct {
	mu   sync.Mutex
	rows []dao.Notification
}

func New() *Repo { return &Repo{} }

func (r *Repo) Record(_ context.Context, n dao.Notification) (dao.Notification, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.OrderID == n.OrderID && row.Kind == n.Kind {
			return row, false, nil
		}
	}
	n.ID = int64(len(r.rows) + 1)
	n.CreatedAt = time.Now().UTC()
	r.rows = append(r.rows, n)
	return n, true, nil
}

func (r *Repo) List(_ context.Context, customerID string, limit, offset int) ([]dao.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dao.Notification
	for i := len(r.rows) - 1; i >= 0; i-- {
		if customerID == "" || r.rows[i].CustomerID == customerID {
			out = append(out, r.rows[i])
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
