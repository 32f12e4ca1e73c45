package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "stockpulse/internal/errors"
	custommw "stockpulse/internal/middleware"
	"stockpulse/internal/operations"
	"stockpulse/pkg/contracts/domain"
)

// multipart parts above this size are spooled to disk by net/http
const multipartMemory = 32 << 20

// UploadService is the service behind the upload endpoints
type UploadService interface {
	Submit(ctx context.Context, fileName string, category domain.Category, r io.Reader) (*operations.Job, error)
	Job(ctx context.Context, id string) (*operations.Job, error)
	Jobs(ctx context.Context, filter operations.JobFilter) ([]*operations.Job, error)
	Cancel(ctx context.Context, id string) error
}

// UploadHandler handles workbook uploads and upload job polling
type UploadHandler struct {
	service   UploadService
	validator *custommw.Validator
	errors    ErrorResponder
	maxBytes  int64
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewUploadHandler creates an upload handler. maxBytes bounds the whole
// request body.
func NewUploadHandler(service UploadService, validator *custommw.Validator, errs ErrorResponder, maxBytes int64, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{
		service:   service,
		validator: validator,
		errors:    errs,
		maxBytes:  maxBytes,
		tracer:    otel.Tracer("stockpulse.transport"),
		logger:    logger.With(slog.String("handler", "uploads")),
	}
}

// Routes returns a chi router for upload endpoints
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(custommw.ContentTypeValidator("multipart/form-data")).Post("/", h.Upload)
	r.Get("/", h.ListJobs)
	r.Get("/{id}", h.GetJob)
	r.Delete("/{id}", h.CancelJob)
	return r
}

// UploadResponse is returned when an upload was queued
type UploadResponse struct {
	JobID       string `json:"job_id"`
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
}

// Upload handles POST /api/uploads with a multipart body carrying "file"
// and "category"
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "uploads.submit",
		trace.WithAttributes(attribute.String("request_id", middleware.GetReqID(r.Context()))))
	defer span.End()
	r = r.WithContext(ctx)

	if r.ContentLength > h.maxBytes {
		h.errors.HandleError(w, r, apperrors.NewSizeError(r.ContentLength, h.maxBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			size := r.ContentLength
			if size <= maxBytes.Limit {
				size = maxBytes.Limit + 1
			}
			h.errors.HandleError(w, r, apperrors.NewSizeError(size, maxBytes.Limit))
			return
		}
		h.errors.HandleError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	category, ok := h.validator.Category(w, r, "category", r.FormValue("category"))
	if !ok {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errors.HandleError(w, r, apperrors.ErrValidation("file", "file is required"))
		return
	}
	defer file.Close()

	span.SetAttributes(
		attribute.String("category", string(category)),
		attribute.String("file_name", header.Filename),
		attribute.Int64("file_size", header.Size))

	job, err := h.service.Submit(ctx, header.Filename, category, file)
	if err != nil {
		h.errors.HandleError(w, r, apiError(err))
		return
	}

	span.SetAttributes(attribute.String("job_id", job.ID))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, UploadResponse{
		JobID:       job.ID,
		OperationID: job.OperationID,
		Status:      string(job.Status),
	})
}

// GetJob handles GET /api/uploads/{id}
func (h *UploadHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, apiError(err))
		return
	}
	render.JSON(w, r, job)
}

// ListJobs handles GET /api/uploads?status=&category=&limit=
func (h *UploadHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.validator.QueryInt(w, r, "limit", 1, 500, 50)
	if !ok {
		return
	}
	filter := operations.JobFilter{
		Status: operations.JobStatus(r.URL.Query().Get("status")),
		Limit:  limit,
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		if filter.Category, ok = h.validator.Category(w, r, "category", raw); !ok {
			return
		}
	}

	jobs, err := h.service.Jobs(r.Context(), filter)
	if err != nil {
		h.errors.HandleError(w, r, apiError(err))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// CancelJob handles DELETE /api/uploads/{id}
func (h *UploadHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Cancel(r.Context(), id); err != nil {
		h.errors.HandleError(w, r, apiError(err))
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"job_id": id, "status": "cancelling"})
}
