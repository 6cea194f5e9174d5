// Package scheduler persists delayed work ("due tasks") and runs it when it
// falls due, so simulated delays survive a process restart.
package scheduler

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"time"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the scheduled_tasks schema, applied alongside the
// owning service's own migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

var ErrUnknownKind = errors.New("no handler registered for task kind")

// Task is one unit of delayed work. RefID points at the aggregate the task
// acts on (kitchen order id, delivery id).
type Task struct {
	ID        int64
	Kind      string
	RefID     int64
	DueAt     time.Time
	Status    Status
	Attempts  int
	LastError string
}

// Scheduler is what services depend on to defer work.
type Scheduler interface {
	Schedule(ctx context.Context, kind string, refID int64, dueAt time.Time) error
}

// Store persists tasks.
type Store interface {
	Insert(ctx context.Context, kind string, refID int64, dueAt time.Time) (int64, error)
	// ClaimDue marks up to limit tasks running and returns them: pending tasks
	// due at or before now, and running tasks not touched since staleBefore.
	ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]Task, error)
	MarkDone(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause string) error
}
