// Package schedulertest provides an in-memory scheduler.Store.
package schedulertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nikolovlazar/tracing-demos/internal/scheduler"
)

type row struct {
	task    scheduler.Task
	touched time.Time
}

// Store keeps tasks in memory with the same claim rules as the Postgres store.
type Store struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*row
}

func NewStore() *Store {
	return &Store{rows: map[int64]*row{}}
}

func (s *Store) Insert(_ context.Context, kind string, refID int64, dueAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.rows {
		if r.task.Kind == kind && r.task.RefID == refID {
			return id, nil
		}
	}
	s.nextID++
	s.rows[s.nextID] = &row{
		task:    scheduler.Task{ID: s.nextID, Kind: kind, RefID: refID, DueAt: dueAt, Status: scheduler.StatusPending},
		touched: time.Now(),
	}
	return s.nextID, nil
}

func (s *Store) ClaimDue(_ context.Context, now, staleBefore time.Time, limit int) ([]scheduler.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*row
	for _, r := range s.rows {
		switch {
		case r.task.Status == scheduler.StatusPending && !r.task.DueAt.After(now):
			due = append(due, r)
		case r.task.Status == scheduler.StatusRunning && !r.touched.After(staleBefore):
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].task.DueAt.Equal(due[j].task.DueAt) {
			return due[i].task.ID < due[j].task.ID
		}
		return due[i].task.DueAt.Before(due[j].task.DueAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]scheduler.Task, 0, len(due))
	for _, r := range due {
		r.task.Status = scheduler.StatusRunning
		r.task.Attempts++
		r.touched = now
		out = append(out, r.task)
	}
	return out, nil
}

func (s *Store) MarkDone(_ context.Context, id int64) error {
	s.set(id, scheduler.StatusDone, "")
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id int64, cause string) error {
	s.set(id, scheduler.StatusFailed, cause)
	return nil
}

func (s *Store) set(id int64, st scheduler.Status, cause string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[id]; ok {
		r.task.Status = st
		if cause != "" {
			r.task.LastError = cause
		}
		r.touched = time.Now()
	}
}

// Tasks returns a snapshot ordered by id.
func (s *Store) Tasks() []scheduler.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scheduler.Task, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r.task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ scheduler.Store = (*Store)(nil)
