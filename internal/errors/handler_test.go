package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpulse/internal/shared/testutil"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "size error",
			err:        NewSizeError(200, 100),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypeUploadSize,
		},
		{
			name:       "format error",
			err:        NewFormatError(".csv", []string{".xlsx"}),
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   TypeUploadFormat,
		},
		{
			name:       "sheets error",
			err:        NewMissingSheetError("FG value", []string{"Sheet1"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeUploadSheets,
		},
		{
			name:       "columns error",
			err:        NewMissingColumnError("FG value", "Value", []string{"A"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeUploadColumns,
		},
		{
			name:       "wrapped parsing error",
			err:        fmt.Errorf("stage reading: %w", NewCorruptFileError(fmt.Errorf("bad zip"))),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeUploadParsing,
		},
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "api error",
			err:        ErrJobNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "queue full message",
			err:        fmt.Errorf("job queue is full"),
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeQueueFull,
		},
		{
			name:       "generic error",
			err:        fmt.Errorf("something went wrong"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logHandler := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/uploads", nil)

			handler.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Contains(t, body, "trace_id")
			assert.True(t, logHandler.ContainsMessage("request_failed"))
		})
	}
}

func TestErrorHandler_ProcessingErrorHidesCause(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/uploads/1", nil)
	handler.HandleError(w, r, NewCorruptFileError(fmt.Errorf("zip: checksum error in xl/workbook.xml")))

	assert.NotContains(t, w.Body.String(), "checksum")
	assert.Contains(t, w.Body.String(), "processing failed")
	assert.Contains(t, w.Body.String(), `"kind":"parsing"`)
}

func TestErrorHandler_NilError(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, logHandler.Count())
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/boom", nil), "boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"panic":"boom"`)
	assert.True(t, logHandler.ContainsMessage("panic recovered"))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	handler := NewErrorHandler(nil, false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "DELETE")
}
