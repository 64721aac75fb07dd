package operations

import (
	"sync"
	"time"
)

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunState represents the complete state of one pipeline run
type RunState struct {
	mu sync.RWMutex

	ID        string
	ReportID  string
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time

	// Steps in execution order
	steps []*StepState

	// Context passes data between steps (parsed frames, built reports)
	context map[string]any

	Err error
}

// NewRunState creates a pending run state for a report.
func NewRunState(id, reportID string) *RunState {
	return &RunState{
		ID:        id,
		ReportID:  reportID,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		context:   make(map[string]any),
	}
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunStatusRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
}

// Fail marks the run as failed
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Err = err
}

// Cancel marks the run as cancelled
func (r *RunState) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCancelled
}

// AddStep registers a step state, in execution order.
func (r *RunState) AddStep(state *StepState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, state)
}

// Step returns the state of a specific step
func (r *RunState) Step(id string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Steps returns the step states in execution order
func (r *RunState) Steps() []*StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*StepState, len(r.steps))
	copy(out, r.steps)
	return out
}

// GetContext retrieves a value from the run context
func (r *RunState) GetContext(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.context[key]
	return val, ok
}

// SetContext sets a value in the run context
func (r *RunState) SetContext(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.context[key] = value
}

// Duration returns how long the run has been executing
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// StepSnapshot is an immutable copy of one step's state, safe to serialize.
type StepSnapshot struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunSnapshot is an immutable copy of the whole run, safe to serialize.
type RunSnapshot struct {
	RunID    string         `json:"run_id"`
	ReportID string         `json:"report_id"`
	Status   RunStatus      `json:"status"`
	Steps    []StepSnapshot `json:"steps"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Snapshot copies the run and step states for progress broadcasting.
func (r *RunState) Snapshot() RunSnapshot {
	r.mu.RLock()
	steps := make([]*StepState, len(r.steps))
	copy(steps, r.steps)
	snap := RunSnapshot{
		RunID:    r.ID,
		ReportID: r.ReportID,
		Status:   r.Status,
	}
	if r.Err != nil {
		snap.Error = r.Err.Error()
	}
	if r.EndTime != nil {
		snap.Duration = r.EndTime.Sub(r.StartTime)
	} else {
		snap.Duration = time.Since(r.StartTime)
	}
	r.mu.RUnlock()

	for _, s := range steps {
		snap.Steps = append(snap.Steps, s.snapshot())
	}
	return snap
}
