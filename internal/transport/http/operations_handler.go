package http

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"stockpulse/internal/operations"
)

// OperationLister exposes the runs the operation manager is executing
type OperationLister interface {
	ListOperations() []*operations.OperationState
	GetOperation(id string) (*operations.OperationState, error)
}

// OperationsHandler reports in-flight ingestion runs
type OperationsHandler struct {
	operations OperationLister
	errors     ErrorResponder
	logger     *slog.Logger
}

// NewOperationsHandler creates an operations handler
func NewOperationsHandler(lister OperationLister, errs ErrorResponder, logger *slog.Logger) *OperationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationsHandler{
		operations: lister,
		errors:     errs,
		logger:     logger.With(slog.String("handler", "operations")),
	}
}

// Routes returns a chi router for operation endpoints
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListOperations)
	r.Get("/{id}", h.GetOperation)
	return r
}

// OperationView is the API form of a running operation
type OperationView struct {
	ID           string                           `json:"id"`
	Status       operations.OperationStatusValue  `json:"status"`
	StartTime    time.Time                        `json:"start_time"`
	ElapsedMs    int64                            `json:"elapsed_ms"`
	Steps        map[string]*operations.StepState `json:"steps"`
	FailedStages []string                         `json:"failed_stages,omitempty"`
	WarningCount int                              `json:"warning_count"`
}

func newOperationView(op *operations.OperationState) OperationView {
	view := OperationView{
		ID:           op.ID,
		Status:       op.GetStatus(),
		StartTime:    op.StartTime,
		ElapsedMs:    op.Duration().Milliseconds(),
		Steps:        op.Steps,
		WarningCount: len(op.GetWarnings()),
	}
	if op.HasFailures() {
		for _, st := range op.GetFailedStages() {
			view.FailedStages = append(view.FailedStages, st.ID)
		}
		sort.Strings(view.FailedStages)
	}
	return view
}

// ListOperations handles GET /api/operations, oldest run first
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ops := h.operations.ListOperations()
	sort.Slice(ops, func(i, j int) bool { return ops[i].StartTime.Before(ops[j].StartTime) })

	views := make([]OperationView, 0, len(ops))
	for _, op := range ops {
		views = append(views, newOperationView(op))
	}
	render.JSON(w, r, map[string]interface{}{
		"operations": views,
		"count":      len(views),
	})
}

// GetOperation handles GET /api/operations/{id}
func (h *OperationsHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	op, err := h.operations.GetOperation(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, apiError(err))
		return
	}
	render.JSON(w, r, newOperationView(op))
}
