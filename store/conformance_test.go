package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sicko7947/durable"
)

// runConformanceSuite exercises the store-level contract the executor
// relies on (absent lookups, zombie-row overwrite, completed-output
// round-trip, retry accounting, completed-step listing and order,
// cancellation) against any durable.Store implementation.
func runConformanceSuite(t *testing.T, newStore func(t *testing.T) durable.Store) {
	ctx := context.Background()

	t.Run("find absent returns nil, nil", func(t *testing.T) {
		s := newStore(t)
		rec, err := s.Find(ctx, "w1", "step#1")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("mark running then find returns RUNNING", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MarkRunning(ctx, "w1", "s#1", "s", 1))
		rec, err := s.Find(ctx, "w1", "s#1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, durable.StepRunning, rec.Status)
		assert.Equal(t, uint64(1), rec.SequenceID)
	})

	t.Run("mark running overwrites a zombie row", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MarkRunning(ctx, "w1", "s#1", "s", 1))
		require.NoError(t, s.MarkFailed(ctx, "w1", "s#1", "boom"))
		require.NoError(t, s.MarkRunning(ctx, "w1", "s#1", "s", 1))

		rec, err := s.Find(ctx, "w1", "s#1")
		require.NoError(t, err)
		assert.Equal(t, durable.StepRunning, rec.Status)
		assert.Equal(t, "", rec.Error)
		assert.Equal(t, 0, rec.RetryCount)
	})

	t.Run("mark completed is visible and output round-trips", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MarkRunning(ctx, "w1", "s#1", "s", 1))
		require.NoError(t, s.MarkCompleted(ctx, "w1", "s#1", `"hello"`))

		rec, err := s.Find(ctx, "w1", "s#1")
		require.NoError(t, err)
		assert.True(t, rec.IsCompleted())
		assert.Equal(t, `"hello"`, rec.Output)
	})

	t.Run("mark failed with retry records accounting", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MarkRunning(ctx, "w1", "s#1", "s", 1))
		require.NoError(t, s.MarkFailedWithRetry(ctx, "w1", "s#1", "boom", 1, 999))

		rec, err := s.Find(ctx, "w1", "s#1")
		require.NoError(t, err)
		assert.True(t, rec.IsFailed())
		assert.Equal(t, 1, rec.RetryCount)
		require.NotNil(t, rec.NextRetryAt)
		assert.Equal(t, int64(999), *rec.NextRetryAt)
	})

	t.Run("distinct step names memoize independently", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MarkRunning(ctx, "w1", "a#1", "a", 1))
		require.NoError(t, s.MarkCompleted(ctx, "w1", "a#1", `"ra"`))
		require.NoError(t, s.MarkRunning(ctx, "w1", "b#2", "b", 2))
		require.NoError(t, s.MarkCompleted(ctx, "w1", "b#2", `"rb"`))

		steps, err := s.GetCompletedSteps(ctx, "w1")
		require.NoError(t, err)
		require.Len(t, steps, 2)
		assert.Equal(t, "a#1", steps[0].StepKey)
		assert.Equal(t, "b#2", steps[1].StepKey)
	})

	t.Run("workflow cancellation is observable", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertWorkflow(ctx, "w6", durable.WorkflowRunning))
		cancelled, err := s.IsCancelled(ctx, "w6")
		require.NoError(t, err)
		assert.False(t, cancelled)

		require.NoError(t, s.CancelWorkflow(ctx, "w6"))
		cancelled, err = s.IsCancelled(ctx, "w6")
		require.NoError(t, err)
		assert.True(t, cancelled)

		status, ok, err := s.GetWorkflowStatus(ctx, "w6")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, durable.WorkflowCancelled, status)
	})

	t.Run("get completed steps excludes running and failed rows", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MarkRunning(ctx, "w1", "a#1", "a", 1))
		require.NoError(t, s.MarkCompleted(ctx, "w1", "a#1", `"ra"`))
		require.NoError(t, s.MarkRunning(ctx, "w1", "b#2", "b", 2))
		require.NoError(t, s.MarkFailed(ctx, "w1", "b#2", "boom"))
		require.NoError(t, s.MarkRunning(ctx, "w1", "c#3", "c", 3))

		steps, err := s.GetCompletedSteps(ctx, "w1")
		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.Equal(t, "a#1", steps[0].StepKey)
	})
}
