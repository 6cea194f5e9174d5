package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/config"
)

// Handler runs one claimed task. A returned error marks the task failed; it
// is not retried.
type Handler func(ctx context.Context, t Task) error

// Runner polls the store for due tasks and dispatches them by kind.
type Runner struct {
	store      Store
	interval   time.Duration
	batchSize  int
	staleAfter time.Duration
	lg         *zap.Logger
	now        func() time.Time

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRunner(store Store, cfg config.SchedulerConfig, lg *zap.Logger) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = time.Minute
	}
	return &Runner{
		store:      store,
		interval:   cfg.PollInterval,
		batchSize:  cfg.BatchSize,
		staleAfter: cfg.StaleAfter,
		lg:         lg.Named("scheduler"),
		now:        time.Now,
		handlers:   map[string]Handler{},
	}
}

// Register binds kind to h. Registering a kind twice replaces the handler.
func (r *Runner) Register(kind string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Schedule persists a task for kind due at dueAt.
func (r *Runner) Schedule(ctx context.Context, kind string, refID int64, dueAt time.Time) error {
	id, err := r.store.Insert(ctx, kind, refID, dueAt)
	if err != nil {
		return err
	}
	r.lg.Debug("task_scheduled",
		zap.Int64("task_id", id),
		zap.String("kind", kind),
		zap.Int64("ref_id", refID),
		zap.Time("due_at", dueAt),
	)
	return nil
}

// Run polls until ctx is cancelled. Tasks already claimed finish before it
// returns.
func (r *Runner) Run(ctx context.Context) error {
	r.lg.Info("scheduler_started", zap.Duration("interval", r.interval), zap.Int("batch_size", r.batchSize))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.lg.Info("scheduler_stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.lg.Error("scheduler_poll_failed", zap.Error(err))
			}
		}
	}
}

// RunOnce claims one batch of due tasks and runs them in due order. It
// returns how many tasks were claimed.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	now := r.now()
	tasks, err := r.store.ClaimDue(ctx, now, now.Add(-r.staleAfter), r.batchSize)
	if err != nil {
		return 0, err
	}
	for _, t := range tasks {
		r.dispatch(context.WithoutCancel(ctx), t)
	}
	return len(tasks), nil
}

func (r *Runner) dispatch(ctx context.Context, t Task) {
	lg := r.lg.With(zap.Int64("task_id", t.ID), zap.String("kind", t.Kind), zap.Int64("ref_id", t.RefID))
	if t.Attempts > 1 {
		lg.Warn("task_reclaimed", zap.Int("attempts", t.Attempts))
	}

	r.mu.RLock()
	h, ok := r.handlers[t.Kind]
	r.mu.RUnlock()

	var runErr error
	if !ok {
		runErr = fmt.Errorf("%w: %s", ErrUnknownKind, t.Kind)
	} else {
		runErr = h(ctx, t)
	}

	if runErr != nil {
		lg.Error("task_failed", zap.Error(runErr))
		if err := r.store.MarkFailed(ctx, t.ID, runErr.Error()); err != nil {
			lg.Error("task_mark_failed_error", zap.Error(err))
		}
		return
	}
	if err := r.store.MarkDone(ctx, t.ID); err != nil {
		lg.Error("task_mark_done_error", zap.Error(err))
		return
	}
	lg.Debug("task_done")
}

var _ Scheduler = (*Runner)(nil)
