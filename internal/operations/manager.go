package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/trace"

	"stockpulse/internal/dataprocessing"
	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/schema"
	"stockpulse/pkg/contracts/domain"
)

// Manager runs the ingestion stages of one upload after another under a
// single whole-run timeout. A failing stage ends the run; nothing is
// retried.
type Manager struct {
	registry    *Registry
	schemas     *schema.Registry
	config      *Config
	broadcaster *StatusBroadcaster
	tracer      *OperationTracer
	logger      *slog.Logger

	mu         sync.RWMutex
	operations map[string]*runningOperation
}

type runningOperation struct {
	state  *OperationState
	cancel context.CancelFunc
}

// NewManager creates a manager. A nil registry gets the four ingestion
// stages; nil schemas use the built-in schema.
func NewManager(hub WebSocketHub, registry *Registry, schemas *schema.Registry, config *Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
		if err := RegisterIngestionStages(registry, logger); err != nil {
			return nil, fmt.Errorf("failed to register ingestion stages: %w", err)
		}
	}
	if registry.Count() == 0 {
		return nil, fmt.Errorf("operation registry has no stages")
	}
	if schemas == nil {
		schemas = schema.DefaultRegistry()
	}
	if config == nil {
		config = NewConfig()
	}

	return &Manager{
		registry:    registry,
		schemas:     schemas,
		config:      config,
		broadcaster: NewStatusBroadcaster(hub, logger),
		logger:      logger.With(slog.String("component", "operation_manager")),
		operations:  make(map[string]*runningOperation),
	}, nil
}

// SetTracer enables tracing and business metrics for every run
func (m *Manager) SetTracer(tracer *OperationTracer) {
	m.tracer = tracer
}

// GetTracer returns the tracer, nil when tracing is off
func (m *Manager) GetTracer() *OperationTracer {
	return m.tracer
}

// GetBroadcaster returns the status broadcaster
func (m *Manager) GetBroadcaster() *StatusBroadcaster {
	return m.broadcaster
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute ingests one upload. The response always carries a
// ProcessingResult; the returned error is the failure it describes.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	started := time.Now()
	category := string(req.Upload.Category)

	state := NewOperationState(req.ID)

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		err = NewFatalError("failed to order stages", err)
		return m.finishFailed(ctx, state, req, err, started), err
	}

	stepIDs := make([]string, len(steps))
	for i, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
		stepIDs[i] = step.ID()
	}
	if _, exists := m.broadcaster.GetSnapshot(req.ID); !exists {
		m.broadcaster.CreateOperation(req.ID, stepIDs)
	}
	m.broadcaster.DescribeOperation(req.ID, req.Upload.FileName, category)

	cfg, err := m.schemas.For(req.Upload.Category)
	if err != nil {
		pe := apperrors.NewInvalidInputError(fmt.Sprintf("unsupported category %q", category))
		pe.Cause = err
		return m.finishFailed(ctx, state, req, pe, started), pe
	}

	timeout := m.config.RunTimeout(cfg.ProcessingTimeout)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m.storeOperation(state, cancel)
	defer m.removeOperation(req.ID)

	var span trace.Span
	runCtx, span = m.tracer.TraceOperationExecution(runCtx, req.ID, category)
	defer span.End()

	progress := NewProgressChannel(func(ev ProgressEvent) {
		m.broadcaster.UpdateProgress(req.ID, ev)
		m.tracer.RecordStageProgress(runCtx, req.ID, ev)
		if req.OnProgress != nil {
			req.OnProgress(ev)
		}
	})
	state.setProgress(progress)
	state.SetContext(ContextKeyUpload, req.Upload)
	state.SetContext(ContextKeySchema, cfg)

	m.logOperationStart(runCtx, req.ID, req.Upload)
	state.Start()
	m.broadcaster.StartOperation(req.ID)

	err = m.executeSequential(runCtx, state, steps)
	closeWorkbook(state)

	var resp *OperationResponse
	if err != nil {
		err = runError(runCtx, timeout, err)
		resp = m.finishFailed(runCtx, state, req, err, started)
		if errors.Is(runCtx.Err(), context.Canceled) {
			state.Cancel()
			m.broadcaster.CancelOperation(req.ID)
			m.tracer.RecordCancellation(runCtx, category)
			resp.Status = state.GetStatus()
		}
	} else {
		sheets, _ := contextValue[[]domain.NormalizedSheet](state, ContextKeySheets)
		result := dataprocessing.BuildResult(req.Upload, sheets, state.GetWarnings(), started, time.Now())
		progress.Emit(PhaseComplete, 100, "complete")
		state.Complete()
		m.broadcaster.CompleteOperation(req.ID, fmt.Sprintf("%d sheets, %d rows processed",
			result.Stats.SheetsProcessed, result.Stats.TotalRows))
		resp = m.createResponse(state, result)
	}

	m.tracer.RecordOperationCompletion(runCtx, span, req.ID, category, state.Duration(), resp.Result)
	m.logOperationComplete(runCtx, req.ID, state.Duration(), string(state.GetStatus()))

	return resp, err
}

// finishFailed builds the failed response and publishes the failure
func (m *Manager) finishFailed(ctx context.Context, state *OperationState, req OperationRequest, err error, started time.Time) *OperationResponse {
	result := dataprocessing.FailedResult(err, state.GetWarnings(), started, time.Now())
	state.Fail(err)
	m.broadcaster.FailOperation(req.ID, result.Error.Message)
	m.logOperationError(ctx, req.ID, err)

	resp := m.createResponse(state, result)
	resp.Error = result.Error.Message
	return resp
}

// runError turns an interrupted run into the error reported to the
// uploader. Stage errors of runs that were not interrupted pass through.
func runError(runCtx context.Context, timeout time.Duration, err error) error {
	switch cause := runCtx.Err(); {
	case errors.Is(cause, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(timeout, err)
	case cause != nil:
		return apperrors.NewParsingError("processing cancelled", err)
	}
	return err
}

// executeSequential executes steps one by one and stops at the first failure
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			m.skipRemaining(state, steps[i:], "operation cancelled")
			return NewCancellationError(step.ID(), err)
		}

		m.logger.DebugContext(ctx, "executing_stage",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))

		if err := m.executeStage(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("Step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStage runs a single Step once
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError("Step state not found", nil)
	}

	if err := step.Validate(state); err != nil {
		stepState.Fail(err)
		m.broadcaster.FailStep(state.ID, step.ID(), "processing failed")
		m.logStageError(ctx, state.ID, step.ID(), err)
		return NewValidationError(step.ID(), err.Error())
	}

	stageCtx, span := m.tracer.TraceStageExecution(ctx, state.ID, step.ID())
	defer span.End()

	m.logStageStart(stageCtx, state.ID, step.ID())
	stepState.Start()
	m.broadcaster.UpdateStepProgress(state.ID, step.ID(), 0, "Step started")

	startTime := time.Now()
	err := step.Execute(stageCtx, state)
	duration := time.Since(startTime)
	m.tracer.RecordStageCompletion(stageCtx, span, state.ID, step.ID(), duration, err)

	if err != nil {
		stepState.Fail(err)
		m.broadcaster.FailStep(state.ID, step.ID(), userMessage(err))
		m.logStageError(stageCtx, state.ID, step.ID(), err)
		return WrapError(err, step.ID(), "Step execution failed")
	}

	stepState.Complete()
	m.broadcaster.CompleteStep(state.ID, step.ID(), "Step completed successfully", stepMetadata(stepState))
	m.logStageComplete(stageCtx, state.ID, step.ID(), duration)
	return nil
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if st := state.GetStage(step.ID()); st != nil && st.GetStatus() == StepStatusPending {
			st.Skip(reason)
		}
	}
}

func userMessage(err error) string {
	if pe, ok := apperrors.AsProcessingError(err); ok {
		return pe.Message
	}
	return "processing failed"
}

func stepMetadata(st *StepState) map[string]interface{} {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make(map[string]interface{}, len(st.Metadata))
	for k, v := range st.Metadata {
		out[k] = v
	}
	return out
}

func closeWorkbook(state *OperationState) {
	if f, err := contextValue[*excelize.File](state, ContextKeyFile); err == nil && f != nil {
		_ = f.Close()
	}
}

// createResponse creates an operation response from state
func (m *Manager) createResponse(state *OperationState, result *domain.ProcessingResult) *OperationResponse {
	clone := state.Clone()
	return &OperationResponse{
		ID:       clone.ID,
		Status:   clone.Status,
		Duration: state.Duration(),
		Steps:    clone.Steps,
		Result:   result,
	}
}

// GetOperation retrieves the state of a running operation
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, exists := m.operations[id]
	if !exists {
		return nil, ErrOperationNotFound
	}
	return op.state.Clone(), nil
}

// ListOperations returns all running operations
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make([]*OperationState, 0, len(m.operations))
	for _, op := range m.operations {
		operations = append(operations, op.state.Clone())
	}
	return operations
}

// CancelOperation cancels a running operation. The run stops at its next
// cancellation check and reports itself cancelled.
func (m *Manager) CancelOperation(id string) error {
	m.mu.RLock()
	op, exists := m.operations[id]
	m.mu.RUnlock()

	if !exists {
		return ErrOperationNotFound
	}
	op.cancel()
	return nil
}

func (m *Manager) storeOperation(state *OperationState, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = &runningOperation{state: state, cancel: cancel}
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
}
