// Package config provides centralized configuration management for StockPulse.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is layered in the following order, later sources winning:
//
//	1. Default values from Default()
//	2. A YAML file (STOCKPULSE_CONFIG, config.yaml or configs/config.yaml)
//	3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern STOCKPULSE_<SECTION>_<FIELD>:
//
//	STOCKPULSE_SERVER_PORT=8080
//	STOCKPULSE_PROCESSING_QUEUE_DEPTH=8
//	STOCKPULSE_STORAGE_DRIVER=postgres
//	STOCKPULSE_STORAGE_DSN=postgres://...
//	STOCKPULSE_LOGGING_LEVEL=debug
//
// # Validation
//
// Struct tags are checked with go-playground/validator after every layer has
// been applied, so an invalid environment override is reported at startup.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests should start from Default(), which needs no environment or files.
package config
