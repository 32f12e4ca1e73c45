package operations

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WebSocketHub interface for sending WebSocket messages
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// StatusBroadcaster is the single authority for operation status. It keeps
// the latest snapshot of every operation and broadcasts it on each change.
type StatusBroadcaster struct {
	mu         sync.RWMutex
	operations map[string]*OperationSnapshot
	hub        WebSocketHub
	logger     *slog.Logger
	updates    chan updateRequest
	stop       chan struct{}
	stopOnce   sync.Once
}

// OperationSnapshot represents the complete state of an operation at a point in time
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	FileName    string         `json:"file_name,omitempty"`
	Category    string         `json:"category,omitempty"`
	Status      string         `json:"status"` // pending|running|completed|failed|cancelled
	Phase       Phase          `json:"phase,omitempty"`
	Progress    int            `json:"progress"` // 0-100, never decreases
	CurrentStep string         `json:"current_step"`
	Steps       []StepSnapshot `json:"steps"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// StepSnapshot represents the state of a single step
type StepSnapshot struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Status   string                 `json:"status"` // pending|running|completed|failed|skipped
	Progress int                    `json:"progress"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type updateRequest struct {
	operationID string
	updateFunc  func(*OperationSnapshot)
	done        chan struct{}
}

// NewStatusBroadcaster creates a new status broadcaster
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}

	sb := &StatusBroadcaster{
		operations: make(map[string]*OperationSnapshot),
		hub:        hub,
		logger:     logger.With(slog.String("component", "status_broadcaster")),
		updates:    make(chan updateRequest, 100),
		stop:       make(chan struct{}),
	}

	go sb.processUpdates()

	return sb
}

// processUpdates applies updates one at a time
func (sb *StatusBroadcaster) processUpdates() {
	for {
		select {
		case <-sb.stop:
			return
		case req := <-sb.updates:
			sb.handleUpdate(req)
		}
	}
}

func (sb *StatusBroadcaster) handleUpdate(req updateRequest) {
	defer close(req.done)

	sb.mu.Lock()
	defer sb.mu.Unlock()

	snapshot, exists := sb.operations[req.operationID]
	if !exists {
		now := time.Now()
		snapshot = &OperationSnapshot{
			OperationID: req.operationID,
			Status:      string(OperationStatusPending),
			StartedAt:   now,
			UpdatedAt:   now,
			Steps:       []StepSnapshot{},
		}
		sb.operations[req.operationID] = snapshot
	}

	req.updateFunc(snapshot)
	snapshot.UpdatedAt = time.Now()

	if isTerminal(snapshot.Status) && snapshot.CompletedAt == nil {
		now := time.Now()
		snapshot.CompletedAt = &now
	}

	sb.broadcast(snapshot.clone())
}

func (sb *StatusBroadcaster) broadcast(snapshot *OperationSnapshot) {
	if sb.hub == nil {
		return
	}

	sb.logger.Debug("broadcasting_operation_snapshot",
		slog.String("operation_id", snapshot.OperationID),
		slog.String("status", snapshot.Status),
		slog.String("phase", string(snapshot.Phase)),
		slog.Int("progress", snapshot.Progress))

	sb.hub.BroadcastUpdate(EventTypeOperationSnapshot, snapshot.OperationID, snapshot.Status, snapshot)
}

// UpdateStatus applies updateFunc to the operation's snapshot and waits
// until the change has been broadcast. After Stop it is a no-op.
func (sb *StatusBroadcaster) UpdateStatus(operationID string, updateFunc func(*OperationSnapshot)) {
	req := updateRequest{
		operationID: operationID,
		updateFunc:  updateFunc,
		done:        make(chan struct{}),
	}

	select {
	case sb.updates <- req:
	case <-sb.stop:
		return
	}
	select {
	case <-req.done:
	case <-sb.stop:
	}
}

// CreateOperation initializes a new operation with the given step IDs
func (sb *StatusBroadcaster) CreateOperation(operationID string, stepIDs []string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusPending)
		snapshot.Progress = 0
		snapshot.Steps = make([]StepSnapshot, len(stepIDs))
		for i, id := range stepIDs {
			snapshot.Steps[i] = StepSnapshot{
				ID:     id,
				Name:   StageName(id),
				Status: string(StepStatusPending),
			}
		}
		snapshot.Message = "Operation created"
	})
}

// DescribeOperation labels an operation with the upload it processes
func (sb *StatusBroadcaster) DescribeOperation(operationID, fileName, category string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.FileName = fileName
		snapshot.Category = category
	})
}

// StartOperation marks an operation as running
func (sb *StatusBroadcaster) StartOperation(operationID string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusRunning)
		snapshot.Message = "Operation started"
	})
}

// UpdateProgress applies a progress event. Overall progress never
// decreases; the step named by the event's phase moves to running.
func (sb *StatusBroadcaster) UpdateProgress(operationID string, ev ProgressEvent) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		if ev.Percent >= snapshot.Progress {
			snapshot.Progress = ev.Percent
		}
		snapshot.Phase = ev.Phase
		snapshot.Message = ev.Message

		start, end, _ := PhaseRange(ev.Phase)
		for i := range snapshot.Steps {
			step := &snapshot.Steps[i]
			if step.ID != string(ev.Phase) {
				continue
			}
			local := 100
			if end > start {
				local = (ev.Percent - start) * 100 / (end - start)
			}
			if local > step.Progress {
				step.Progress = minInt(local, 100)
			}
			step.Message = ev.Message
			if step.Status == string(StepStatusPending) {
				step.Status = "running"
			}
			snapshot.CurrentStep = step.Name
			break
		}
	})
}

// UpdateStepProgress updates a specific step's progress
func (sb *StatusBroadcaster) UpdateStepProgress(operationID, stepID string, progress int, message string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			step := &snapshot.Steps[i]
			if step.ID != stepID {
				continue
			}
			// keep the higher progress already observed
			if progress > step.Progress {
				step.Progress = minInt(progress, 100)
			}
			step.Message = message
			if step.Progress >= 100 {
				step.Status = string(StepStatusCompleted)
			} else {
				step.Status = "running"
				snapshot.CurrentStep = step.Name
			}
			break
		}
	})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// CompleteStep marks a step as completed
func (sb *StatusBroadcaster) CompleteStep(operationID, stepID string, message string, metadata map[string]interface{}) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = string(StepStatusCompleted)
				snapshot.Steps[i].Progress = 100
				snapshot.Steps[i].Message = message
				if len(metadata) > 0 {
					snapshot.Steps[i].Metadata = metadata
				}
				break
			}
		}
	})
}

// FailStep marks a step as failed
func (sb *StatusBroadcaster) FailStep(operationID, stepID string, message string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = string(StepStatusFailed)
				snapshot.Steps[i].Error = message
				break
			}
		}
	})
}

// CompleteOperation marks an operation as completed
func (sb *StatusBroadcaster) CompleteOperation(operationID string, message string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusCompleted)
		snapshot.Phase = PhaseComplete
		snapshot.Progress = 100
		snapshot.CurrentStep = ""
		snapshot.Message = message
		for i := range snapshot.Steps {
			if snapshot.Steps[i].Status == "running" || snapshot.Steps[i].Status == string(StepStatusPending) {
				snapshot.Steps[i].Status = string(StepStatusCompleted)
				snapshot.Steps[i].Progress = 100
			}
		}
	})
}

// FailOperation marks an operation as failed with a user-facing message
func (sb *StatusBroadcaster) FailOperation(operationID string, message string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusFailed)
		snapshot.Error = message
		snapshot.CurrentStep = ""
		for i := range snapshot.Steps {
			if snapshot.Steps[i].Status == string(StepStatusPending) {
				snapshot.Steps[i].Status = string(StepStatusSkipped)
			}
		}
	})
}

// CancelOperation marks an operation as cancelled
func (sb *StatusBroadcaster) CancelOperation(operationID string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = string(OperationStatusCancelled)
		snapshot.CurrentStep = ""
		snapshot.Message = "Operation cancelled by user"
	})
}

// GetSnapshot returns a copy of the current snapshot for an operation
func (sb *StatusBroadcaster) GetSnapshot(operationID string) (*OperationSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, exists := sb.operations[operationID]
	if !exists {
		return nil, false
	}
	return snapshot.clone(), true
}

// GetAllSnapshots returns copies of all current operation snapshots
func (sb *StatusBroadcaster) GetAllSnapshots() []*OperationSnapshot {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshots := make([]*OperationSnapshot, 0, len(sb.operations))
	for _, snapshot := range sb.operations {
		snapshots = append(snapshots, snapshot.clone())
	}
	return snapshots
}

// CleanupOldOperations removes finished operations older than maxAge and
// returns how many were removed
func (sb *StatusBroadcaster) CleanupOldOperations(ctx context.Context, maxAge time.Duration) int {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, snapshot := range sb.operations {
		if !isTerminal(snapshot.Status) || snapshot.CompletedAt == nil {
			continue
		}
		if now.Sub(*snapshot.CompletedAt) > maxAge {
			delete(sb.operations, id)
			removed++
		}
	}
	if removed > 0 {
		sb.logger.InfoContext(ctx, "cleaned_up_operations", slog.Int("removed", removed))
	}
	return removed
}

// Stop shuts down the update loop
func (sb *StatusBroadcaster) Stop() {
	sb.stopOnce.Do(func() { close(sb.stop) })
}

func (s *OperationSnapshot) clone() *OperationSnapshot {
	c := *s
	c.Steps = append([]StepSnapshot(nil), s.Steps...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func isTerminal(status string) bool {
	switch OperationStatusValue(status) {
	case OperationStatusCompleted, OperationStatusFailed, OperationStatusCancelled:
		return true
	}
	return false
}
