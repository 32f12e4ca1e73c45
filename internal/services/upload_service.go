package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"stockpulse/internal/dataprocessing"
	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/infrastructure"
	"stockpulse/internal/operations"
	"stockpulse/internal/schema"
	"stockpulse/internal/storage"
	"stockpulse/pkg/contracts/domain"
)

// UploadQueue is the part of the job queue the upload service drives
type UploadQueue interface {
	Enqueue(ctx context.Context, upload dataprocessing.Upload) (*operations.Job, error)
	GetJob(id string) (*operations.Job, error)
	ListJobs(filter operations.JobFilter) ([]*operations.Job, error)
	CancelJob(id string) error
}

// UploadService accepts workbook uploads, queues them for processing and
// persists successful results. It is the queue's result sink.
type UploadService struct {
	queue   UploadQueue
	store   storage.Store
	schemas *schema.Registry
	logger  *slog.Logger
}

// NewUploadService creates an upload service. Call SetQueue before Submit;
// the queue and the service reference each other.
func NewUploadService(store storage.Store, schemas *schema.Registry, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	if schemas == nil {
		schemas = schema.DefaultRegistry()
	}
	return &UploadService{
		store:   store,
		schemas: schemas,
		logger:  infrastructure.WithComponent(logger, "upload_service"),
	}
}

// SetQueue sets the queue uploads are submitted to
func (s *UploadService) SetQueue(queue UploadQueue) {
	s.queue = queue
}

// Submit reads an upload and queues it. Extension and size are checked
// against the category schema before queueing so obviously bad files are
// rejected synchronously; everything else is reported through the job.
func (s *UploadService) Submit(ctx context.Context, fileName string, category domain.Category, r io.Reader) (*operations.Job, error) {
	cfg, err := s.schemas.For(category)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	// one byte past the limit is enough to report the size error
	content, err := io.ReadAll(io.LimitReader(r, cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	upload := dataprocessing.Upload{FileName: fileName, Category: category, Content: content}
	if err := dataprocessing.CheckUpload(upload, cfg); err != nil {
		s.logger.InfoContext(ctx, "upload_rejected",
			slog.String("file_name", fileName),
			slog.String("category", string(category)),
			slog.String("error", err.Error()))
		return nil, err
	}

	job, err := s.queue.Enqueue(ctx, upload)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "upload_queued",
		slog.String("job_id", job.ID),
		slog.String("file_name", fileName),
		slog.String("category", string(category)),
		slog.Int64("file_size", upload.Size()))
	return job, nil
}

// Job returns the current snapshot of a job
func (s *UploadService) Job(ctx context.Context, id string) (*operations.Job, error) {
	return s.queue.GetJob(id)
}

// Jobs lists jobs, newest first
func (s *UploadService) Jobs(ctx context.Context, filter operations.JobFilter) ([]*operations.Job, error) {
	return s.queue.ListJobs(filter)
}

// Cancel cancels a waiting or running job
func (s *UploadService) Cancel(ctx context.Context, id string) error {
	if err := s.queue.CancelJob(id); err != nil {
		if !errors.Is(err, operations.ErrJobNotFound) {
			s.logger.WarnContext(ctx, "cancel_failed", slog.String("job_id", id), slog.String("error", err.Error()))
		}
		return err
	}
	s.logger.InfoContext(ctx, "upload_cancel_requested", slog.String("job_id", id))
	return nil
}

// Persist stores the raw upload and its normalized result as the new active
// dataset of the job's category.
func (s *UploadService) Persist(ctx context.Context, job *operations.Job, upload dataprocessing.Upload, result *domain.ProcessingResult) (string, error) {
	if result == nil || result.Data == nil {
		return "", fmt.Errorf("%w: result has no data", storage.ErrInvalidDataset)
	}

	raw := domain.RawFile{Name: upload.FileName, Content: upload.Content}
	id, err := s.store.Save(ctx, raw, result.Data, job.Category)
	if err != nil {
		return "", fmt.Errorf("failed to save dataset: %w", err)
	}

	s.logger.InfoContext(ctx, "dataset_persisted",
		slog.String("job_id", job.ID),
		slog.String("dataset_id", id),
		slog.String("category", string(job.Category)))
	return id, nil
}
