package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	custommw "stockpulse/internal/middleware"
	"stockpulse/internal/schema"
	"stockpulse/pkg/contracts/domain"
)

// DatasetService is the service behind the dataset, metrics and schema
// endpoints
type DatasetService interface {
	Active(ctx context.Context, category domain.Category) (*domain.Dataset, error)
	History(ctx context.Context, category domain.Category, limit int) ([]domain.DatasetMeta, error)
	Metrics(ctx context.Context) (*domain.MetricsReport, error)
	CategoryMetrics(ctx context.Context, category domain.Category) (*domain.MetricsReport, error)
	Schema(category domain.Category) (schema.SchemaConfig, error)
}

// DatasetHandler handles dataset, metrics and schema requests
type DatasetHandler struct {
	service   DatasetService
	validator *custommw.Validator
	errors    ErrorResponder
	logger    *slog.Logger
}

// NewDatasetHandler creates a dataset handler
func NewDatasetHandler(service DatasetService, validator *custommw.Validator, errs ErrorResponder, logger *slog.Logger) *DatasetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetHandler{
		service:   service,
		validator: validator,
		errors:    errs,
		logger:    logger.With(slog.String("handler", "datasets")),
	}
}

// Routes returns the dataset router, mounted at /api/datasets
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{category}/active", h.GetActive)
	r.Get("/{category}/history", h.GetHistory)
	return r
}

// MetricsRoutes returns the metrics router, mounted at /api/metrics
func (h *DatasetHandler) MetricsRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	r.Get("/{category}", h.GetCategoryMetrics)
	return r
}

// SchemaRoutes returns the schema router, mounted at /api/schema
func (h *DatasetHandler) SchemaRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{category}", h.GetSchema)
	return r
}

// GetActive handles GET /api/datasets/{category}/active
func (h *DatasetHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	ds, err := h.service.Active(r.Context(), category)
	if err != nil {
		h.errors.HandleError(w, r, apiError(err))
		return
	}
	render.JSON(w, r, ds)
}

// GetHistory handles GET /api/datasets/{category}/history?limit=
func (h *DatasetHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	limit, ok := h.validator.QueryInt(w, r, "limit", 1, 1000, 50)
	if !ok {
		return
	}

	history, err := h.service.History(r.Context(), category, limit)
	if err != nil {
		h.errors.HandleError(w, r, apiError(err))
		return
	}
	if history == nil {
		history = []domain.DatasetMeta{}
	}
	render.JSON(w, r, map[string]interface{}{
		"category": category,
		"datasets": history,
		"count":    len(history),
	})
}

// GetMetrics handles GET /api/metrics
func (h *DatasetHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Metrics(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, apiError(err))
		return
	}
	render.JSON(w, r, report)
}

// GetCategoryMetrics handles GET /api/metrics/{category}
func (h *DatasetHandler) GetCategoryMetrics(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	report, err := h.service.CategoryMetrics(r.Context(), category)
	if err != nil {
		h.errors.HandleError(w, r, apiError(err))
		return
	}
	render.JSON(w, r, report)
}

// GetSchema handles GET /api/schema/{category}
func (h *DatasetHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	cfg, err := h.service.Schema(category)
	if err != nil {
		h.errors.HandleError(w, r, apiError(err))
		return
	}
	render.JSON(w, r, cfg)
}

func (h *DatasetHandler) category(w http.ResponseWriter, r *http.Request) (domain.Category, bool) {
	return h.validator.Category(w, r, "category", chi.URLParam(r, "category"))
}
