package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"stockpulse/internal/infrastructure"
	"stockpulse/internal/operations"
	ws "stockpulse/internal/websocket"
)

// Health states
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

const pingTimeout = 2 * time.Second

// Pinger is implemented by the dataset store
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueStatter is implemented by the job queue
type QueueStatter interface {
	GetQueueStats() operations.QueueStats
}

// HubStatter is implemented by the websocket hub
type HubStatter interface {
	Stats() ws.HubStats
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     Pinger
	queue     QueueStatter
	hub       HubStatter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// NewHealthService creates a health service. Any dependency may be nil, in
// which case readiness reports it as not ready.
func NewHealthService(version string, store Pinger, queue QueueStatter, hub HubStatter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		store:     store,
		queue:     queue,
		hub:       hub,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck reports that the process is up
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports whether the store, the queue and the hub can serve
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"storage":   hs.checkStorage(ctx),
			"queue":     hs.checkQueue(),
			"websocket": hs.checkWebSocket(),
		},
	}

	for name, service := range status.Services {
		if service.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "service_not_ready",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}
	return status
}

func (hs *HealthService) checkStorage(ctx context.Context) ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "storage not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := hs.store.Ping(ctx); err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: "storage unreachable"}
	}
	return ServiceHealth{Status: StatusReady}
}

func (hs *HealthService) checkQueue() ServiceHealth {
	if hs.queue == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "job queue not initialized"}
	}
	stats := hs.queue.GetQueueStats()
	return ServiceHealth{Status: StatusReady, Details: stats}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "websocket hub not initialized"}
	}
	return ServiceHealth{Status: StatusReady, Details: hs.hub.Stats()}
}
