// Package services implements the business logic between the HTTP handlers
// and the processing, storage and metrics packages.
//
// # Available Services
//
//	- UploadService: validates and queues uploads, persists successful results
//	- DatasetService: active datasets, history, metrics and schemas
//	- HealthService: liveness and readiness checks
//
// Services take their dependencies in the constructor and a *slog.Logger
// tagged with the service's component name. They return domain errors
// (storage.ErrNotFound, operations.ErrQueueFull, ProcessingError) that the
// handlers map to problem responses.
package services
