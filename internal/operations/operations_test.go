package operations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerCompletesAllSteps(t *testing.T) {
	var order []string
	steps := []Step{
		StepFunc("load", "Load", func(ctx context.Context, state *RunState) error {
			order = append(order, "load")
			state.SetContext("rows", 10)
			return nil
		}),
		StepFunc("build", "Build", func(ctx context.Context, state *RunState) error {
			order = append(order, "build")
			rows, ok := state.GetContext("rows")
			require.True(t, ok)
			assert.Equal(t, 10, rows)
			return nil
		}),
	}

	state := NewRunState("run-1", "stocks")
	err := NewRunner(steps).Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, []string{"load", "build"}, order)
	assert.Equal(t, RunStatusCompleted, state.Status)
	for _, s := range state.Steps() {
		assert.Equal(t, StepStatusCompleted, s.Status)
	}
}

func TestRunnerFailureSkipsRemaining(t *testing.T) {
	steps := []Step{
		StepFunc("a", "A", func(ctx context.Context, state *RunState) error { return nil }),
		StepFunc("b", "B", func(ctx context.Context, state *RunState) error {
			return fmt.Errorf("boom")
		}),
		StepFunc("c", "C", func(ctx context.Context, state *RunState) error {
			t.Fatal("step c must not run")
			return nil
		}),
	}

	state := NewRunState("run-2", "loans")
	err := NewRunner(steps).Run(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step b")

	assert.Equal(t, RunStatusFailed, state.Status)
	assert.Equal(t, StepStatusCompleted, state.Step("a").Status)
	assert.Equal(t, StepStatusFailed, state.Step("b").Status)
	assert.Equal(t, StepStatusSkipped, state.Step("c").Status)
}

func TestRunnerEmitsProgress(t *testing.T) {
	var snapshots []RunSnapshot
	steps := []Step{
		StepFunc("only", "Only", func(ctx context.Context, state *RunState) error { return nil }),
	}

	state := NewRunState("run-3", "insurance")
	runner := NewRunner(steps, WithProgress(func(s RunSnapshot) {
		snapshots = append(snapshots, s)
	}))
	require.NoError(t, runner.Run(context.Background(), state))

	// start, step active, step complete, run complete
	require.GreaterOrEqual(t, len(snapshots), 3)
	last := snapshots[len(snapshots)-1]
	assert.Equal(t, RunStatusCompleted, last.Status)
	assert.Equal(t, "insurance", last.ReportID)
	require.Len(t, last.Steps, 1)
	assert.Equal(t, StepStatusCompleted, last.Steps[0].Status)
}

func TestRunnerStepTimeout(t *testing.T) {
	steps := []Step{
		StepFunc("slow", "Slow", func(ctx context.Context, state *RunState) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return nil
			}
		}),
	}

	state := NewRunState("run-4", "stocks")
	runner := NewRunner(steps, WithStepTimeout(20*time.Millisecond))

	start := time.Now()
	err := runner.Run(context.Background(), state)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, RunStatusFailed, state.Status)
}

func TestRunnerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	steps := []Step{
		StepFunc("never", "Never", func(ctx context.Context, state *RunState) error {
			t.Fatal("must not run")
			return nil
		}),
	}

	state := NewRunState("run-5", "loans")
	err := NewRunner(steps).Run(ctx, state)
	require.Error(t, err)
	assert.Equal(t, RunStatusCancelled, state.Status)
	assert.Equal(t, StepStatusSkipped, state.Step("never").Status)
}

func TestStepStateDuration(t *testing.T) {
	s := NewStepState("x", "X")
	assert.Equal(t, time.Duration(0), s.Duration())

	s.Start()
	s.Complete()
	assert.GreaterOrEqual(t, s.Duration(), time.Duration(0))
	assert.Equal(t, StepStatusCompleted, s.Status)
}
