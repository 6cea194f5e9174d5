package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nikolovlazar/tracing-demos/internal/common/db"
)

type PostgresStore struct {
	db db.Querier
}

func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{db: q}
}

// Insert is idempotent per (kind, refID): a second call returns the id of
// the task already stored and leaves it untouched.
func (s *PostgresStore) Insert(ctx context.Context, kind string, refID int64, dueAt time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO scheduled_tasks (kind, ref_id, due_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (kind, ref_id) DO NOTHING
			RETURNING id
		)
		SELECT id FROM ins
		UNION ALL
		SELECT id FROM scheduled_tasks WHERE kind = $1 AND ref_id = $2
		LIMIT 1`,
		kind, refID, dueAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert scheduled task %s/%d: %w", kind, refID, err)
	}
	return id, nil
}

func (s *PostgresStore) ClaimDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]Task, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE scheduled_tasks t
		SET status = 'running', attempts = t.attempts + 1, updated_at = $1
		WHERE t.id IN (
			SELECT id FROM scheduled_tasks
			WHERE (status = 'pending' AND due_at <= $1)
			   OR (status = 'running' AND updated_at <= $2)
			ORDER BY due_at, id
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING t.id, t.kind, t.ref_id, t.due_at, t.status, t.attempts, COALESCE(t.last_error, '')`,
		now.UTC(), staleBefore.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due tasks: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Task, error) {
		var t Task
		var status string
		err := row.Scan(&t.ID, &t.Kind, &t.RefID, &t.DueAt, &status, &t.Attempts, &t.LastError)
		t.Status = Status(status)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan due tasks: %w", err)
	}
	// RETURNING does not keep the subquery order.
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].DueAt.Equal(tasks[j].DueAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].DueAt.Before(tasks[j].DueAt)
	})
	return tasks, nil
}

func (s *PostgresStore) MarkDone(ctx context.Context, id int64) error {
	return s.finish(ctx, id, StatusDone, nil)
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id int64, cause string) error {
	return s.finish(ctx, id, StatusFailed, &cause)
}

func (s *PostgresStore) finish(ctx context.Context, id int64, status Status, cause *string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE scheduled_tasks
		SET status = $2, last_error = COALESCE($3, last_error), updated_at = now()
		WHERE id = $1`,
		id, string(status), cause,
	)
	if err != nil {
		return fmt.Errorf("mark task %d %s: %w", id, status, err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
