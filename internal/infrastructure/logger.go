package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"stockpulse/internal/config"
)

var (
	loggerMu  sync.Mutex
	appLogger *slog.Logger
	logFile   *os.File
)

// InitializeLogger builds the server logger from cfg and installs it as the
// slog default. Once a logger exists later calls return it unchanged.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if appLogger != nil {
		return appLogger, nil
	}

	level, err := ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out, err := logOutput(cfg)
	if err != nil {
		return nil, err
	}

	appLogger = NewLogger(out, level)
	slog.SetDefault(appLogger)
	return appLogger, nil
}

// GetLogger returns the server logger, or the slog default before
// InitializeLogger ran
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if appLogger == nil {
		return slog.Default()
	}
	return appLogger
}

// NewLogger returns a JSON logger writing to w. Records logged with a
// context carrying a request or trace id get a trace_id attribute.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	})
	return slog.New(&traceHandler{Handler: handler})
}

// ParseLogLevel accepts debug, info, warn (or warning) and error in any case
func ParseLogLevel(s string) (slog.Level, error) {
	if strings.EqualFold(strings.TrimSpace(s), "warning") {
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// logOutput opens the writer named by cfg.Output. Callers hold loggerMu.
func logOutput(cfg config.LoggingConfig) (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "file", "both":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		logFile = f
		if strings.EqualFold(cfg.Output, "both") {
			return io.MultiWriter(os.Stdout, f), nil
		}
		return f, nil
	default:
		return os.Stdout, nil
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// CloseLogFile closes the log file opened by InitializeLogger, if any
func CloseLogFile() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	return closeLogFile()
}

func closeLogFile() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ResetLoggerForTesting drops the server logger so tests can initialize a
// fresh one
func ResetLoggerForTesting() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	_ = closeLogFile()
	appLogger = nil
}

// traceHandler adds trace_id to records whose context carries one
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID := GetTraceID(ctx); traceID != "" {
		r.AddAttrs(slog.String("trace_id", traceID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}
