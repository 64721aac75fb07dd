package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ProgressFunc receives a snapshot after every state transition.
type ProgressFunc func(RunSnapshot)

// Runner executes a fixed list of steps in order. The first failure stops
// the run; the remaining steps are marked skipped.
type Runner struct {
	steps      []Step
	timeout    time.Duration
	logger     *slog.Logger
	onProgress ProgressFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithStepTimeout bounds each step's execution time.
func WithStepTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a runner over the given steps.
func NewRunner(steps []Step, opts ...Option) *Runner {
	r := &Runner{steps: steps, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every step against the run state. It returns the first step
// error, wrapped with the step id.
func (r *Runner) Run(ctx context.Context, state *RunState) error {
	states := make([]*StepState, len(r.steps))
	for i, step := range r.steps {
		states[i] = NewStepState(step.ID(), step.Name())
		state.AddStep(states[i])
	}

	state.Start()
	r.notify(state)

	for i, step := range r.steps {
		if err := ctx.Err(); err != nil {
			r.skipFrom(state, states, i, "run cancelled")
			state.Cancel()
			r.notify(state)
			return fmt.Errorf("run %s: %w", state.ID, err)
		}

		states[i].Start()
		r.notify(state)
		r.logger.InfoContext(ctx, "step started",
			slog.String("run_id", state.ID),
			slog.String("report", state.ReportID),
			slog.String("step", step.ID()))

		err := r.executeStep(ctx, step, state)
		if err != nil {
			states[i].Fail(err)
			r.skipFrom(state, states, i+1, "previous step failed")
			state.Fail(err)
			r.notify(state)
			r.logger.ErrorContext(ctx, "step failed",
				slog.String("run_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
			return fmt.Errorf("step %s: %w", step.ID(), err)
		}

		states[i].Complete()
		r.notify(state)
		r.logger.InfoContext(ctx, "step completed",
			slog.String("run_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", states[i].Duration()))
	}

	state.Complete()
	r.notify(state)
	return nil
}

func (r *Runner) executeStep(ctx context.Context, step Step, state *RunState) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return step.Execute(ctx, state)
}

func (r *Runner) skipFrom(state *RunState, states []*StepState, from int, reason string) {
	for i := from; i < len(states); i++ {
		if states[i].Status == StepStatusPending {
			states[i].Skip(reason)
		}
	}
}

func (r *Runner) notify(state *RunState) {
	if r.onProgress != nil {
		r.onProgress(state.Snapshot())
	}
}
