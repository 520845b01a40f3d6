// Package storetest provides a conformance suite every store.Store
// implementation runs in its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mizan/core"
	"github.com/hupe1980/mizan/runner"
	"github.com/hupe1980/mizan/store"
)

// SampleResult builds a completed two-turn result started at start.
func SampleResult(runID, taskID string, start time.Time) *runner.Result {
	ref := "echo:bye"
	return &runner.Result{
		RunID:     runID,
		TaskID:    taskID,
		ModelName: "echo",
		Language:  "Arabic",
		Status:    runner.StatusCompleted,
		History:   core.NewHistory().Append("hi", "echo:hi").Append("bye", "echo:bye"),
		Turns: []runner.TurnResult{
			{Index: 0, Prompt: "hi", Response: "echo:hi", Duration: time.Millisecond},
			{
				Index: 1, Prompt: "bye", Response: "echo:bye", Reference: &ref,
				Scored: true, Scores: map[string]float64{"exact": 1}, Duration: 2 * time.Millisecond,
			},
		},
		Generations: 2,
		StartedAt:   start,
		FinishedAt:  start.Add(time.Second),
	}
}

// Run exercises the Store contract against stores built by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("SaveAndGet", func(t *testing.T) {
		s := newStore(t)
		want := SampleResult("run-1", "task-a", base)
		require.NoError(t, s.Save(ctx, want))

		got, err := s.Get(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, want.TaskID, got.TaskID)
		assert.Equal(t, want.ModelName, got.ModelName)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Generations, got.Generations)
		assert.True(t, want.StartedAt.Equal(got.StartedAt))
		assert.True(t, want.FinishedAt.Equal(got.FinishedAt))
		assert.Equal(t, want.History.Exchanges(), got.History.Exchanges())
		assert.Equal(t, want.Turns, got.Turns)
		assert.NoError(t, got.Err)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := newStore(t).Get(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("FailedRunKeepsReasonAndPartialHistory", func(t *testing.T) {
		s := newStore(t)
		res := SampleResult("run-f", "task-a", base)
		res.Status = runner.StatusFailed
		res.Reason = runner.ReasonGeneration
		res.Err = errors.New("task task-a: turn 2: generation failed: boom")
		require.NoError(t, s.Save(ctx, res))

		got, err := s.Get(ctx, "run-f")
		require.NoError(t, err)
		assert.Equal(t, runner.ReasonGeneration, got.Reason)
		require.Error(t, got.Err)
		assert.Equal(t, res.Err.Error(), got.Err.Error())
		assert.Equal(t, 2, got.History.Len())
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		s := newStore(t)
		res := SampleResult("run-r", "task-a", base)
		require.NoError(t, s.Save(ctx, res))
		res.Turns = res.Turns[:1]
		res.History = core.NewHistory().Append("hi", "echo:hi")
		require.NoError(t, s.Save(ctx, res))

		got, err := s.Get(ctx, "run-r")
		require.NoError(t, err)
		assert.Len(t, got.Turns, 1)
		assert.Equal(t, 1, got.History.Len())
	})

	t.Run("ListByTaskOrdered", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, SampleResult("run-b", "task-a", base.Add(time.Minute))))
		require.NoError(t, s.Save(ctx, SampleResult("run-a", "task-a", base)))
		require.NoError(t, s.Save(ctx, SampleResult("run-c", "task-b", base)))

		list, err := s.List(ctx, "task-a")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "run-a", list[0].RunID)
		assert.Equal(t, "run-b", list[1].RunID)

		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("ReturnedResultsAreCopies", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, SampleResult("run-c", "task-a", base)))

		got, err := s.Get(ctx, "run-c")
		require.NoError(t, err)
		got.Turns[1].Scores["exact"] = 0

		again, err := s.Get(ctx, "run-c")
		require.NoError(t, err)
		assert.Equal(t, 1.0, again.Turns[1].Scores["exact"])
	})
}
