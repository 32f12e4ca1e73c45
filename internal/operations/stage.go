package operations

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Step is one stage of the ingestion pipeline. Stages hand data to each
// other through the operation context and run in dependency order.
type Step interface {
	ID() string
	Name() string

	// Validate checks that the context holds everything Execute reads
	Validate(state *OperationState) error

	Execute(ctx context.Context, state *OperationState) error

	// GetDependencies lists the stages that must finish first
	GetDependencies() []string
}

// StepStatus is the lifecycle position of a stage within one run
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is what the manager records about one stage of a run. Metadata
// carries stage results such as sheet and row counts.
type StepState struct {
	mu        sync.RWMutex
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    StepStatus             `json:"status"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Progress  float64                `json:"progress"`
	Message   string                 `json:"message"`
	Error     error                  `json:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewStepState returns a pending stage record
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:       id,
		Name:     name,
		Status:   StepStatusPending,
		Metadata: make(map[string]interface{}),
	}
}

// Start marks the stage active
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
	s.Progress = 0
}

// Complete marks the stage done
func (s *StepState) Complete() {
	s.finish(StepStatusCompleted, "", nil)
}

// Fail records the error that ended the stage
func (s *StepState) Fail(err error) {
	s.finish(StepStatusFailed, "", err)
}

// Skip marks a stage that never ran because an earlier one ended the run
func (s *StepState) Skip(reason string) {
	s.finish(StepStatusSkipped, reason, nil)
}

func (s *StepState) finish(status StepStatus, message string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = status
	s.Error = err
	if message != "" {
		s.Message = message
	}
	if status == StepStatusCompleted {
		s.Progress = 100
	}
}

// SetMetadata records a stage result
func (s *StepState) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Metadata[key] = value
}

// GetStatus returns the current status
func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// BaseStage holds the identity every ingestion stage shares. Stages embed
// it and supply Execute and, when they read the context, Validate.
type BaseStage struct {
	id           string
	name         string
	dependencies []string
}

// NewBaseStage creates the identity of a stage
func NewBaseStage(id, name string, dependencies []string) BaseStage {
	if dependencies == nil {
		dependencies = []string{}
	}
	return BaseStage{id: id, name: name, dependencies: dependencies}
}

func (b BaseStage) ID() string                { return b.id }
func (b BaseStage) Name() string              { return b.name }
func (b BaseStage) GetDependencies() []string { return b.dependencies }

// Validate accepts any state
func (b BaseStage) Validate(state *OperationState) error { return nil }

// requireContext fails unless every key is present in the state context.
func requireContext(state *OperationState, keys ...string) error {
	for _, k := range keys {
		if _, ok := state.GetContext(k); !ok {
			return fmt.Errorf("missing %s in operation context", k)
		}
	}
	return nil
}
