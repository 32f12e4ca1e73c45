package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpulse/internal/config"
)

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("upload_received", "file_name", "stock.xlsx")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &entry))
	assert.Equal(t, "upload_received", entry["msg"])
	assert.Equal(t, "stock.xlsx", entry["file_name"])
	assert.Same(t, logger, GetLogger())
}

func TestTraceHandlerInjectsTraceID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"explicit trace id", WithTraceID(context.Background(), "trace-1"), "trace-1"},
		{"chi request id", context.WithValue(context.Background(), middleware.RequestIDKey, "req-7"), "req-7"},
		{"none", context.Background(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(&traceHandler{Handler: slog.NewJSONHandler(&buf, nil)})
			logger.InfoContext(tt.ctx, "stage_complete")

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			if tt.want == "" {
				assert.NotContains(t, entry, "trace_id")
				return
			}
			assert.Equal(t, tt.want, entry["trace_id"])
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"bogus", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid log level")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitializeLoggerRejectsBadLevel(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	_, err := InitializeLogger(config.LoggingConfig{Level: "loud", Output: "console"})
	assert.Error(t, err)
	assert.Equal(t, slog.Default(), GetLogger())
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.NotEmpty(t, id)
	assert.Equal(t, ctx, EnsureTraceID(ctx))

	var buf bytes.Buffer
	logger := WithComponent(slog.New(slog.NewJSONHandler(&buf, nil)), "upload_service")
	WithError(logger, assert.AnError).Info("persist_failed")
	assert.True(t, strings.Contains(buf.String(), `"component":"upload_service"`))
	assert.True(t, strings.Contains(buf.String(), assert.AnError.Error()))
}
