// Package operations runs a report pipeline as an ordered list of named
// steps, tracking per-step status and duration and emitting progress
// snapshots after every transition.
package operations

import (
	"context"
	"sync"
	"time"
)

// Step is one unit of pipeline work. Steps communicate through the run
// state's context map.
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name for this step
	Name() string

	// Execute runs the step with the given context and run state
	Execute(ctx context.Context, state *RunState) error
}

type funcStep struct {
	id   string
	name string
	fn   func(ctx context.Context, state *RunState) error
}

func (s funcStep) ID() string   { return s.id }
func (s funcStep) Name() string { return s.name }
func (s funcStep) Execute(ctx context.Context, state *RunState) error {
	return s.fn(ctx, state)
}

// StepFunc wraps a function as a Step.
func StepFunc(id, name string, fn func(ctx context.Context, state *RunState) error) Step {
	return funcStep{id: id, name: name, fn: fn}
}

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a step
type StepState struct {
	mu        sync.RWMutex
	ID        string
	Name      string
	Status    StepStatus
	StartTime *time.Time
	EndTime   *time.Time
	Message   string
	Err       error
}

// NewStepState creates a new step state with default values
func NewStepState(id, name string) *StepState {
	return &StepState{ID: id, Name: name, Status: StepStatusPending}
}

// Start marks the step as active and sets the start time
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the step as completed and sets the end time
func (s *StepState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusCompleted
}

// Fail marks the step as failed with the given error
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusFailed
	s.Err = err
}

// Skip marks the step as skipped
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StepStatusSkipped
	s.Message = reason
}

// SetMessage updates the progress message shown to subscribers
func (s *StepState) SetMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Message = msg
}

// Duration returns the elapsed execution time of the step
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.StartTime == nil {
		return 0
	}
	if s.EndTime == nil {
		return time.Since(*s.StartTime)
	}
	return s.EndTime.Sub(*s.StartTime)
}

// snapshot copies the current state without holding the lock afterwards.
func (s *StepState) snapshot() StepSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StepSnapshot{
		ID:       s.ID,
		Name:     s.Name,
		Status:   s.Status,
		Message:  s.Message,
		Duration: 0,
	}
	if s.StartTime != nil {
		end := time.Now()
		if s.EndTime != nil {
			end = *s.EndTime
		}
		snap.Duration = end.Sub(*s.StartTime)
	}
	if s.Err != nil {
		snap.Error = s.Err.Error()
	}
	return snap
}
