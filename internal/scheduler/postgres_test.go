package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikolovlazar/tracing-demos/internal/common/db/dbtest"
	"github.com/nikolovlazar/tracing-demos/internal/scheduler"
)

func TestPostgresStore_ClaimLifecycle(t *testing.T) {
	pool := dbtest.NewPool(t, scheduler.Migrations())
	store := scheduler.NewPostgresStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	early, err := store.Insert(ctx, "kitchen.prep", 10, now.Add(-2*time.Second))
	require.NoError(t, err)
	late, err := store.Insert(ctx, "kitchen.prep", 11, now.Add(-time.Second))
	require.NoError(t, err)
	_, err = store.Insert(ctx, "kitchen.prep", 12, now.Add(time.Hour))
	require.NoError(t, err)

	tasks, err := store.ClaimDue(ctx, now, now.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, early, tasks[0].ID)
	assert.Equal(t, late, tasks[1].ID)
	assert.Equal(t, scheduler.StatusRunning, tasks[0].Status)
	assert.Equal(t, 1, tasks[0].Attempts)

	again, err := store.ClaimDue(ctx, now, now.Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, again, "running tasks are not stale yet")

	require.NoError(t, store.MarkDone(ctx, early))
	require.NoError(t, store.MarkFailed(ctx, late, "boom"))

	later, err := store.ClaimDue(ctx, now.Add(2*time.Hour), now.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, later, 1, "done and failed tasks stay put")
	assert.Equal(t, int64(12), later[0].RefID)

	// Left running past staleBefore, as after a crash.
	reclaimed, err := store.ClaimDue(ctx, now.Add(3*time.Hour), now.Add(3*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, 2, reclaimed[0].Attempts)

	var lastErr string
	require.NoError(t, pool.QueryRow(ctx, `SELECT last_error FROM scheduled_tasks WHERE id = $1`, late).Scan(&lastErr))
	assert.Equal(t, "boom", lastErr)
}

func TestPostgresStore_InsertIsIdempotent(t *testing.T) {
	pool := dbtest.NewPool(t, scheduler.Migrations())
	store := scheduler.NewPostgresStore(pool)
	ctx := context.Background()
	due := time.Now().Add(time.Minute)

	first, err := store.Insert(ctx, "delivery.transit", 5, due)
	require.NoError(t, err)
	second, err := store.Insert(ctx, "delivery.transit", 5, due.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := store.Insert(ctx, "kitchen.prep", 5, due)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM scheduled_tasks`).Scan(&n))
	assert.Equal(t, 2, n)
}
