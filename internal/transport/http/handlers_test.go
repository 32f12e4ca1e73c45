package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "stockpulse/internal/errors"
	custommw "stockpulse/internal/middleware"
	"stockpulse/internal/operations"
	"stockpulse/internal/schema"
	"stockpulse/internal/services"
	"stockpulse/internal/storage"
	"stockpulse/pkg/contracts/domain"
)

type mockUploadService struct {
	mock.Mock
}

func (m *mockUploadService) Submit(ctx context.Context, fileName string, category domain.Category, r io.Reader) (*operations.Job, error) {
	content, _ := io.ReadAll(r)
	args := m.Called(fileName, category, string(content))
	job, _ := args.Get(0).(*operations.Job)
	return job, args.Error(1)
}

func (m *mockUploadService) Job(ctx context.Context, id string) (*operations.Job, error) {
	args := m.Called(id)
	job, _ := args.Get(0).(*operations.Job)
	return job, args.Error(1)
}

func (m *mockUploadService) Jobs(ctx context.Context, filter operations.JobFilter) ([]*operations.Job, error) {
	args := m.Called(filter)
	jobs, _ := args.Get(0).([]*operations.Job)
	return jobs, args.Error(1)
}

func (m *mockUploadService) Cancel(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

type mockDatasetService struct {
	mock.Mock
}

func (m *mockDatasetService) Active(ctx context.Context, category domain.Category) (*domain.Dataset, error) {
	args := m.Called(category)
	ds, _ := args.Get(0).(*domain.Dataset)
	return ds, args.Error(1)
}

func (m *mockDatasetService) History(ctx context.Context, category domain.Category, limit int) ([]domain.DatasetMeta, error) {
	args := m.Called(category, limit)
	history, _ := args.Get(0).([]domain.DatasetMeta)
	return history, args.Error(1)
}

func (m *mockDatasetService) Metrics(ctx context.Context) (*domain.MetricsReport, error) {
	args := m.Called()
	report, _ := args.Get(0).(*domain.MetricsReport)
	return report, args.Error(1)
}

func (m *mockDatasetService) CategoryMetrics(ctx context.Context, category domain.Category) (*domain.MetricsReport, error) {
	args := m.Called(category)
	report, _ := args.Get(0).(*domain.MetricsReport)
	return report, args.Error(1)
}

func (m *mockDatasetService) Schema(category domain.Category) (schema.SchemaConfig, error) {
	args := m.Called(category)
	cfg, _ := args.Get(0).(schema.SchemaConfig)
	return cfg, args.Error(1)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(uploads UploadService, datasets DatasetService, maxBytes int64) http.Handler {
	logger := quietLogger()
	errs := apperrors.NewErrorHandler(logger, false)
	validator := custommw.NewValidator(errs, logger)

	r := chi.NewRouter()
	r.Mount("/api/uploads", NewUploadHandler(uploads, validator, errs, maxBytes, logger).Routes())
	dh := NewDatasetHandler(datasets, validator, errs, logger)
	r.Mount("/api/datasets", dh.Routes())
	r.Mount("/api/metrics", dh.MetricsRoutes())
	r.Mount("/api/schema", dh.SchemaRoutes())
	return r
}

func multipartBody(t *testing.T, category, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if category != "" {
		require.NoError(t, mw.WriteField("category", category))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestUploadAccepted(t *testing.T) {
	uploads := &mockUploadService{}
	uploads.On("Submit", "stock.xlsx", domain.CategoryInventory, "workbook").
		Return(&operations.Job{ID: "job-1", OperationID: "op-1", Status: operations.JobStatusPending}, nil)
	router := newTestRouter(uploads, &mockDatasetService{}, 1<<20)

	body, contentType := multipartBody(t, "inventory", "stock.xlsx", "workbook")
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "job-1", out["job_id"])
	assert.Equal(t, "op-1", out["operation_id"])
	assert.Equal(t, "pending", out["status"])
	uploads.AssertExpectations(t)
}

func TestUploadRejected(t *testing.T) {
	tests := []struct {
		name       string
		category   string
		fileName   string
		content    string
		jsonBody   bool
		maxBytes   int64
		submitErr  error
		wantStatus int
		wantType   string
	}{
		{
			name:       "queue full",
			category:   "osr",
			fileName:   "osr.xlsx",
			content:    "x",
			submitErr:  fmt.Errorf("enqueue: %w", operations.ErrQueueFull),
			wantStatus: http.StatusTooManyRequests,
			wantType:   apperrors.TypeQueueFull,
		},
		{
			name:       "body over limit",
			category:   "inventory",
			fileName:   "big.xlsx",
			content:    string(bytes.Repeat([]byte("a"), 4096)),
			maxBytes:   1024,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   apperrors.TypeUploadSize,
		},
		{
			name:       "wrong extension",
			category:   "inventory",
			fileName:   "stock.csv",
			content:    "a,b",
			submitErr:  apperrors.NewFormatError(".csv", []string{".xlsx", ".xls"}),
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   apperrors.TypeUploadFormat,
		},
		{
			name:       "not multipart",
			jsonBody:   true,
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   apperrors.TypeUploadFormat,
		},
		{
			name:       "unknown category",
			category:   "sales",
			fileName:   "stock.xlsx",
			content:    "x",
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name:       "missing file",
			category:   "inventory",
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploads := &mockUploadService{}
			if tt.submitErr != nil {
				uploads.On("Submit", tt.fileName, mock.Anything, tt.content).Return(nil, tt.submitErr)
			}
			maxBytes := tt.maxBytes
			if maxBytes == 0 {
				maxBytes = 1 << 20
			}
			router := newTestRouter(uploads, &mockDatasetService{}, maxBytes)

			var req *http.Request
			if tt.jsonBody {
				req = httptest.NewRequest(http.MethodPost, "/api/uploads", bytes.NewBufferString(`{}`))
				req.Header.Set("Content-Type", "application/json")
			} else {
				body, contentType := multipartBody(t, tt.category, tt.fileName, tt.content)
				req = httptest.NewRequest(http.MethodPost, "/api/uploads", body)
				req.Header.Set("Content-Type", contentType)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantType, decode(t, rec)["type"])
			uploads.AssertExpectations(t)
		})
	}
}

func TestUploadJobs(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		setup      func(m *mockUploadService)
		wantStatus int
	}{
		{
			name:   "get job",
			method: http.MethodGet,
			path:   "/api/uploads/job-1",
			setup: func(m *mockUploadService) {
				m.On("Job", "job-1").Return(&operations.Job{ID: "job-1", Status: operations.JobStatusRunning}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "unknown job",
			method: http.MethodGet,
			path:   "/api/uploads/nope",
			setup: func(m *mockUploadService) {
				m.On("Job", "nope").Return(nil, fmt.Errorf("get: %w", operations.ErrJobNotFound))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "cancel",
			method: http.MethodDelete,
			path:   "/api/uploads/job-1",
			setup: func(m *mockUploadService) {
				m.On("Cancel", "job-1").Return(nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:   "cancel finished job",
			method: http.MethodDelete,
			path:   "/api/uploads/job-2",
			setup: func(m *mockUploadService) {
				m.On("Cancel", "job-2").Return(operations.ErrJobNotCancellable)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:   "list with filter",
			method: http.MethodGet,
			path:   "/api/uploads?category=osr&status=failed&limit=5",
			setup: func(m *mockUploadService) {
				m.On("Jobs", operations.JobFilter{
					Status:   operations.JobStatusFailed,
					Category: domain.CategoryOSR,
					Limit:    5,
				}).Return([]*operations.Job{{ID: "job-3"}}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "list with bad limit",
			method:     http.MethodGet,
			path:       "/api/uploads?limit=0",
			setup:      func(m *mockUploadService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploads := &mockUploadService{}
			tt.setup(uploads)
			router := newTestRouter(uploads, &mockDatasetService{}, 1<<20)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			uploads.AssertExpectations(t)
		})
	}
}

func TestDatasetEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setup      func(m *mockDatasetService)
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "active dataset",
			path: "/api/datasets/inventory/active",
			setup: func(m *mockDatasetService) {
				m.On("Active", domain.CategoryInventory).Return(&domain.Dataset{
					DatasetMeta: domain.DatasetMeta{ID: "ds-1", Category: domain.CategoryInventory, Active: true},
				}, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "ds-1", body["id"])
				assert.Equal(t, true, body["active"])
			},
		},
		{
			name: "no active dataset",
			path: "/api/datasets/osr/active",
			setup: func(m *mockDatasetService) {
				m.On("Active", domain.CategoryOSR).Return(nil, storage.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown category",
			path:       "/api/datasets/sales/active",
			setup:      func(m *mockDatasetService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "history",
			path: "/api/datasets/inventory/history?limit=2",
			setup: func(m *mockDatasetService) {
				m.On("History", domain.CategoryInventory, 2).Return([]domain.DatasetMeta{{ID: "b"}, {ID: "a"}}, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.EqualValues(t, 2, body["count"])
			},
		},
		{
			name: "empty history",
			path: "/api/datasets/osr/history",
			setup: func(m *mockDatasetService) {
				m.On("History", domain.CategoryOSR, 50).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, []interface{}{}, body["datasets"])
			},
		},
		{
			name: "metrics",
			path: "/api/metrics",
			setup: func(m *mockDatasetService) {
				m.On("Metrics").Return(&domain.MetricsReport{
					Sources: []domain.Category{domain.CategoryInventory},
					Partial: true,
				}, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, true, body["partial"])
			},
		},
		{
			name: "metrics without data",
			path: "/api/metrics",
			setup: func(m *mockDatasetService) {
				m.On("Metrics").Return(nil, apperrors.ErrNoMetricsData)
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "category metrics",
			path: "/api/metrics/osr",
			setup: func(m *mockDatasetService) {
				m.On("CategoryMetrics", domain.CategoryOSR).Return(&domain.MetricsReport{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "schema",
			path: "/api/schema/inventory",
			setup: func(m *mockDatasetService) {
				m.On("Schema", domain.CategoryInventory).Return(schema.SchemaConfig{MaxFileSize: 1024}, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.EqualValues(t, 1024, body["max_file_size"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			datasets := &mockDatasetService{}
			tt.setup(datasets)
			router := newTestRouter(&mockUploadService{}, datasets, 1<<20)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decode(t, rec))
			}
			datasets.AssertExpectations(t)
		})
	}
}

func TestReadinessUnavailable(t *testing.T) {
	health := services.NewHealthService("test", nil, nil, nil, quietLogger())
	handler := NewHealthHandler(health, quietLogger())

	rec := httptest.NewRecorder()
	handler.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, services.StatusNotReady, decode(t, rec)["status"])

	rec = httptest.NewRecorder()
	handler.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.StatusOK, decode(t, rec)["status"])
}

type mockOperationLister struct {
	mock.Mock
}

func (m *mockOperationLister) ListOperations() []*operations.OperationState {
	ops, _ := m.Called().Get(0).([]*operations.OperationState)
	return ops
}

func (m *mockOperationLister) GetOperation(id string) (*operations.OperationState, error) {
	args := m.Called(id)
	op, _ := args.Get(0).(*operations.OperationState)
	return op, args.Error(1)
}

func TestOperationEndpoints(t *testing.T) {
	older := operations.NewOperationState("op-older")
	older.Start()
	older.StartTime = time.Now().Add(-time.Minute)

	failing := operations.NewOperationState("op-failing")
	failing.Start()
	reading := operations.NewStepState(operations.StageIDReading, "Reading")
	reading.Fail(fmt.Errorf("zip: not a valid zip file"))
	failing.SetStage(operations.StageIDReading, reading)
	failing.AddWarnings("sheet \"FG value\": no data rows found")

	tests := []struct {
		name       string
		path       string
		setup      func(m *mockOperationLister)
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "list oldest first",
			path: "/api/operations",
			setup: func(m *mockOperationLister) {
				m.On("ListOperations").Return([]*operations.OperationState{failing, older})
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(2), body["count"])
				ops := body["operations"].([]interface{})
				assert.Equal(t, "op-older", ops[0].(map[string]interface{})["id"])
				assert.Equal(t, "op-failing", ops[1].(map[string]interface{})["id"])
			},
		},
		{
			name: "empty list",
			path: "/api/operations",
			setup: func(m *mockOperationLister) {
				m.On("ListOperations").Return(nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(0), body["count"])
				assert.Equal(t, []interface{}{}, body["operations"])
			},
		},
		{
			name: "operation with failed stage",
			path: "/api/operations/op-failing",
			setup: func(m *mockOperationLister) {
				m.On("GetOperation", "op-failing").Return(failing, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "running", body["status"])
				assert.Equal(t, []interface{}{operations.StageIDReading}, body["failed_stages"])
				assert.Equal(t, float64(1), body["warning_count"])
			},
		},
		{
			name: "unknown operation",
			path: "/api/operations/nope",
			setup: func(m *mockOperationLister) {
				m.On("GetOperation", "nope").Return(nil, operations.ErrOperationNotFound)
			},
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, apperrors.TypeNotFound, body["type"])
				assert.Equal(t, "Operation not found", body["detail"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &mockOperationLister{}
			tt.setup(lister)

			logger := quietLogger()
			r := chi.NewRouter()
			r.Mount("/api/operations", NewOperationsHandler(lister, apperrors.NewErrorHandler(logger, false), logger).Routes())

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			tt.check(t, decode(t, rec))
			lister.AssertExpectations(t)
		})
	}
}
