package config

import (
	"time"

	"stockpulse/pkg/contracts"
)

// Application constants
const (
	AppName    = "StockPulse"
	AppVersion = contracts.Version

	// EnvPrefix namespaces every environment variable
	EnvPrefix = "STOCKPULSE"
	// EnvConfigFile points at an explicit YAML config file
	EnvConfigFile = "STOCKPULSE_CONFIG"

	DefaultQueueDepth    = 4
	DefaultJobRetention  = 24 * time.Hour
	DefaultSnapshotTTL   = time.Hour
	DefaultJanitorPeriod = 10 * time.Minute

	// Storage drivers
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// API endpoints
const (
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
