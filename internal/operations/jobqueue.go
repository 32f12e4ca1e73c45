package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"stockpulse/internal/dataprocessing"
	"stockpulse/pkg/contracts/domain"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the job can no longer change
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is one queued upload and, once it ran, its outcome.
type Job struct {
	ID          string                   `json:"id"`
	OperationID string                   `json:"operation_id"`
	FileName    string                   `json:"file_name"`
	FileSize    int64                    `json:"file_size"`
	Category    domain.Category          `json:"category"`
	Status      JobStatus                `json:"status"`
	Progress    int                      `json:"progress"`
	Phase       Phase                    `json:"phase,omitempty"`
	Message     string                   `json:"message,omitempty"`
	Error       string                   `json:"error,omitempty"`
	Result      *domain.ProcessingResult `json:"result,omitempty"`
	DatasetID   string                   `json:"dataset_id,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	StartedAt   *time.Time               `json:"started_at,omitempty"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
	Metadata    map[string]interface{}   `json:"metadata,omitempty"`
}

// JobStore interface for job persistence
type JobStore interface {
	CreateJob(job *Job) error
	GetJob(id string) (*Job, error)
	UpdateJob(job *Job) error
	ListJobs(filter JobFilter) ([]*Job, error)
	DeleteJob(id string) error
}

// JobFilter for querying jobs
type JobFilter struct {
	Status   JobStatus
	Category domain.Category
	Since    time.Time
	Limit    int
}

// ResultSink persists the outcome of a successful run and returns the id
// of the stored dataset.
type ResultSink interface {
	Persist(ctx context.Context, job *Job, upload dataprocessing.Upload, result *domain.ProcessingResult) (string, error)
}

// JobQueue runs uploads on a single worker. Uploads wait in a buffer of
// fixed depth; when it is full new uploads are rejected with ErrQueueFull.
type JobQueue struct {
	mu       sync.Mutex
	jobs     chan *Job
	uploads  map[string]dataprocessing.Upload
	active   map[string]context.CancelFunc
	wg       sync.WaitGroup
	store    JobStore
	manager  *Manager
	sink     ResultSink
	logger   *slog.Logger
	shutdown chan struct{}
	stopOnce sync.Once
}

// NewJobQueue creates a queue holding at most depth waiting uploads
func NewJobQueue(depth int, store JobStore, manager *Manager, logger *slog.Logger) *JobQueue {
	if depth <= 0 {
		depth = manager.GetConfig().QueueDepth
	}
	if store == nil {
		store = NewMemoryJobStore()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &JobQueue{
		jobs:     make(chan *Job, depth),
		uploads:  make(map[string]dataprocessing.Upload),
		active:   make(map[string]context.CancelFunc),
		store:    store,
		manager:  manager,
		logger:   logger.With(slog.String("component", "jobqueue")),
		shutdown: make(chan struct{}),
	}
}

// SetResultSink sets where successful results are persisted
func (q *JobQueue) SetResultSink(sink ResultSink) {
	q.sink = sink
}

// Start begins processing jobs
func (q *JobQueue) Start(ctx context.Context) {
	q.logger.InfoContext(ctx, "job_queue_starting", slog.Int("queue_depth", cap(q.jobs)))

	q.failInterruptedJobs(ctx)

	q.wg.Add(1)
	go q.worker(ctx)
}

// Stop gracefully shuts down the job queue. The running job is cancelled
// when it does not finish within timeout.
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.logger.Info("job_queue_stopping")
	q.stopOnce.Do(func() { close(q.shutdown) })

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job_queue_stopped")
		return nil
	case <-time.After(timeout):
		q.cancelActive()
		q.logger.Warn("job_queue_stop_timeout", slog.Duration("timeout", timeout))
		return fmt.Errorf("timeout waiting for worker to finish")
	}
}

// Enqueue queues an upload. The returned job is a snapshot; poll GetJob
// for its progress.
func (q *JobQueue) Enqueue(ctx context.Context, upload dataprocessing.Upload) (*Job, error) {
	job := &Job{
		ID:          uuid.NewString(),
		FileName:    upload.FileName,
		FileSize:    upload.Size(),
		Category:    upload.Category,
		Status:      JobStatusPending,
		Message:     "waiting for worker",
		CreatedAt:   time.Now(),
		Metadata:    map[string]interface{}{},
	}
	job.OperationID = job.ID
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		job.Metadata["trace_id"] = reqID
	}

	if err := q.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	broadcaster := q.manager.GetBroadcaster()
	broadcaster.CreateOperation(job.OperationID, StageIDs)
	broadcaster.DescribeOperation(job.OperationID, job.FileName, string(job.Category))

	q.mu.Lock()
	q.uploads[job.ID] = upload
	q.mu.Unlock()

	queued := *job
	select {
	case q.jobs <- &queued:
		q.logger.InfoContext(ctx, "job_enqueued",
			slog.String("job_id", job.ID),
			slog.String("file_name", job.FileName),
			slog.String("category", string(job.Category)),
			slog.Int("queue_size", len(q.jobs)))
		return job, nil
	default:
		q.releaseUpload(job.ID)

		job.Status = JobStatusFailed
		job.Error = ErrQueueFull.Error()
		now := time.Now()
		job.CompletedAt = &now
		if err := q.store.UpdateJob(job); err != nil {
			q.logger.ErrorContext(ctx, "failed to update rejected job", slog.String("error", err.Error()))
		}
		broadcaster.FailOperation(job.OperationID, ErrQueueFull.Error())
		q.manager.GetTracer().RecordQueueRejection(ctx, string(job.Category))

		q.logger.WarnContext(ctx, "job_rejected_queue_full",
			slog.String("job_id", job.ID),
			slog.Int("queue_depth", cap(q.jobs)))
		return nil, ErrQueueFull
	}
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*Job, error) {
	return q.store.GetJob(id)
}

// ListJobs returns jobs matching the filter
func (q *JobQueue) ListJobs(filter JobFilter) ([]*Job, error) {
	return q.store.ListJobs(filter)
}

// CancelJob cancels a waiting or running job. A waiting job is skipped by
// the worker; a running job stops at its next cancellation check.
func (q *JobQueue) CancelJob(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cancel, ok := q.active[id]; ok {
		cancel()
		return nil
	}

	job, err := q.store.GetJob(id)
	if err != nil {
		return err
	}
	if job.Status != JobStatusPending {
		return ErrJobNotCancellable
	}

	job.Status = JobStatusCancelled
	job.Message = "cancelled before start"
	now := time.Now()
	job.CompletedAt = &now
	delete(q.uploads, id)

	q.manager.GetBroadcaster().CancelOperation(job.OperationID)
	return q.store.UpdateJob(job)
}

func (q *JobQueue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			q.logger.Debug("worker stopped by shutdown")
			return
		case job := <-q.jobs:
			q.processJob(ctx, job)
		}
	}
}

// begin moves a queued job to running unless it was cancelled meanwhile
func (q *JobQueue) begin(ctx context.Context, job *Job) (context.Context, dataprocessing.Upload, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stored, err := q.store.GetJob(job.ID)
	if err != nil || stored.Status != JobStatusPending {
		delete(q.uploads, job.ID)
		return nil, dataprocessing.Upload{}, false
	}
	upload, ok := q.uploads[job.ID]
	if !ok {
		return nil, dataprocessing.Upload{}, false
	}

	jobCtx, cancel := context.WithCancel(ctx)
	q.active[job.ID] = cancel

	now := time.Now()
	job.Status = JobStatusRunning
	job.StartedAt = &now
	job.Message = "processing"
	if err := q.store.UpdateJob(job); err != nil {
		q.logger.ErrorContext(ctx, "failed to update job status", slog.String("error", err.Error()))
	}
	return jobCtx, upload, true
}

// processJob executes a single job
func (q *JobQueue) processJob(ctx context.Context, job *Job) {
	if traceID, ok := job.Metadata["trace_id"].(string); ok {
		ctx = context.WithValue(ctx, middleware.RequestIDKey, traceID)
	}

	logger := q.logger.With(
		slog.String("job_id", job.ID),
		slog.String("operation_id", job.OperationID),
	)

	jobCtx, upload, ok := q.begin(ctx, job)
	if !ok {
		logger.InfoContext(ctx, "job_skipped", slog.String("reason", "cancelled before start"))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "job processing panicked", slog.Any("panic", r))
			q.finish(ctx, job, JobStatusFailed, "processing failed", logger)
			q.manager.GetBroadcaster().FailOperation(job.OperationID, "processing failed")
		}
		q.mu.Lock()
		if cancel, ok := q.active[job.ID]; ok {
			cancel()
			delete(q.active, job.ID)
		}
		q.mu.Unlock()
		q.releaseUpload(job.ID)
	}()

	logger.InfoContext(ctx, "job_started")

	resp, err := q.manager.Execute(jobCtx, OperationRequest{
		ID:     job.OperationID,
		Upload: upload,
		OnProgress: func(ev ProgressEvent) {
			job.Progress = ev.Percent
			job.Phase = ev.Phase
			job.Message = ev.Message
			if err := q.store.UpdateJob(job); err != nil {
				logger.WarnContext(ctx, "failed to update job progress", slog.String("error", err.Error()))
			}
		},
	})
	if resp != nil {
		job.Result = resp.Result
	}

	switch {
	case err != nil && resp != nil && resp.Status == OperationStatusCancelled:
		q.finish(ctx, job, JobStatusCancelled, resp.Error, logger)
	case err != nil:
		msg := "processing failed"
		if resp != nil && resp.Error != "" {
			msg = resp.Error
		}
		q.finish(ctx, job, JobStatusFailed, msg, logger)
	default:
		q.persist(jobCtx, job, upload, logger)
	}
}

// persist stores a successful result and completes the job
func (q *JobQueue) persist(ctx context.Context, job *Job, upload dataprocessing.Upload, logger *slog.Logger) {
	if q.sink != nil {
		id, err := q.sink.Persist(ctx, job, upload, job.Result)
		q.manager.GetTracer().RecordDatasetStored(ctx, string(job.Category), err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to persist dataset", slog.String("error", err.Error()))
			q.finish(ctx, job, JobStatusFailed, "failed to store dataset", logger)
			return
		}
		job.DatasetID = id
	}
	q.finish(ctx, job, JobStatusCompleted, "", logger)
}

func (q *JobQueue) finish(ctx context.Context, job *Job, status JobStatus, errMsg string, logger *slog.Logger) {
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	job.Error = errMsg
	switch status {
	case JobStatusCompleted:
		job.Progress = 100
		job.Phase = PhaseComplete
		job.Message = "complete"
	case JobStatusCancelled:
		job.Message = "cancelled"
	default:
		job.Message = "failed"
	}

	if err := q.store.UpdateJob(job); err != nil {
		logger.ErrorContext(ctx, "failed to update job completion", slog.String("error", err.Error()))
	}

	logger.InfoContext(ctx, "job_finished",
		slog.String("status", string(status)),
		slog.String("dataset_id", job.DatasetID),
		slog.Duration("duration", now.Sub(*job.StartedAt)))
}

func (q *JobQueue) releaseUpload(id string) {
	q.mu.Lock()
	delete(q.uploads, id)
	q.mu.Unlock()
}

func (q *JobQueue) cancelActive() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, cancel := range q.active {
		cancel()
	}
}

// failInterruptedJobs fails jobs a previous process left unfinished. Their
// uploads lived in that process's memory and cannot be resumed.
func (q *JobQueue) failInterruptedJobs(ctx context.Context) {
	var interrupted []*Job
	for _, status := range []JobStatus{JobStatusRunning, JobStatusPending} {
		jobs, err := q.store.ListJobs(JobFilter{Status: status})
		if err != nil {
			q.logger.ErrorContext(ctx, "failed to list interrupted jobs", slog.String("error", err.Error()))
			return
		}
		interrupted = append(interrupted, jobs...)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range interrupted {
		if _, queued := q.uploads[job.ID]; queued {
			continue
		}
		now := time.Now()
		job.Status = JobStatusFailed
		job.Error = "processing interrupted by restart"
		job.CompletedAt = &now
		if err := q.store.UpdateJob(job); err != nil && !errors.Is(err, ErrJobNotFound) {
			q.logger.ErrorContext(ctx, "failed to fail interrupted job", slog.String("error", err.Error()))
			continue
		}
		q.logger.WarnContext(ctx, "interrupted_job_failed", slog.String("job_id", job.ID))
	}
}

// QueueStats describes the queue for health reporting
type QueueStats struct {
	Workers    int `json:"workers"`
	QueueSize  int `json:"queue_size"`
	QueueCap   int `json:"queue_cap"`
	ActiveJobs int `json:"active_jobs"`
}

// GetQueueStats returns queue statistics
func (q *JobQueue) GetQueueStats() QueueStats {
	q.mu.Lock()
	activeCount := len(q.active)
	q.mu.Unlock()

	return QueueStats{
		Workers:    1,
		QueueSize:  len(q.jobs),
		QueueCap:   cap(q.jobs),
		ActiveJobs: activeCount,
	}
}
